package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/conductor/pkg/domain"
)

// DefaultMaxTransitions bounds a single run.
const DefaultMaxTransitions = 100

// Stepper executes one node of the plan/execute/replan graph.
type Stepper interface {
	Step(ctx context.Context, state *domain.State, target domain.Target) (domain.Delta, domain.Target, error)
}

// Transition describes one committed step of a run.
type Transition struct {
	From     domain.Target
	To       domain.Target
	State    *domain.State
	Duration time.Duration
}

// Observer is notified after every committed transition.
type Observer func(Transition)

// Runner drives a Stepper from an initial state until the run ends.
// Each delta is merged with domain.Apply before the next node runs, so the
// run invariants hold at every boundary.
type Runner struct {
	stepper        Stepper
	logger         *slog.Logger
	maxTransitions int
	observer       Observer
}

// NewRunner creates a Runner over the given stepper.
func NewRunner(stepper Stepper, opts ...Option) *Runner {
	r := &Runner{
		stepper:        stepper,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxTransitions: DefaultMaxTransitions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the loop starting at target and returns the last committed state.
// The returned state is valid even when err is non-nil; it is what the run
// reached before failing.
func (r *Runner) Run(ctx context.Context, state *domain.State, target domain.Target) (*domain.State, error) {
	for n := 0; ; n++ {
		if target == domain.TargetEnd || state.Finished {
			r.logger.Debug("run ended", "run_id", state.RunID, "transitions", n)
			return state, nil
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if n >= r.maxTransitions {
			return state, fmt.Errorf("%w: %d transitions", domain.ErrTransitionLimit, r.maxTransitions)
		}

		start := time.Now()
		delta, next, err := r.stepper.Step(ctx, state, target)
		if err != nil {
			return state, fmt.Errorf("%s: %w", target, err)
		}

		merged, err := domain.Apply(state, delta)
		if err != nil {
			return state, fmt.Errorf("commit %s: %w", target, err)
		}

		r.logger.Debug("transition",
			"run_id", state.RunID,
			"from", target,
			"to", next,
			"step", merged.CurrentStep,
		)
		if r.observer != nil {
			r.observer(Transition{From: target, To: next, State: merged, Duration: time.Since(start)})
		}

		state, target = merged, next
	}
}
