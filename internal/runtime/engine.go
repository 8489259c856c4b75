package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

const (
	// DefaultCallTimeout bounds a single external call (plan, decision or worker).
	DefaultCallTimeout = 2 * time.Minute

	// DefaultDecisionWindow is how many recent messages the oracle sees.
	DefaultDecisionWindow = 4
)

// Engine is the plan/execute/replan state machine.
// It is stateless between calls: every Step reads a State and returns a Delta
// plus the next Target, leaving the merge to the caller.
type Engine struct {
	catalog *catalog.Catalog
	planner ports.PlanGenerator
	oracle  ports.DecisionOracle
	workers map[domain.WorkerID]ports.Worker

	maxReplans       int
	callTimeout      time.Duration
	decisionWindow   int
	softWorkerErrors bool

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxReplans overrides how many replans a single step may receive.
func WithMaxReplans(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxReplans = n
		}
	}
}

// WithCallTimeout bounds every external call. Zero disables the bound.
func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.callTimeout = d
	}
}

// WithDecisionWindow sets how many trailing messages are sent to the oracle.
func WithDecisionWindow(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.decisionWindow = n
		}
	}
}

// WithWorkerErrorsAsMessages controls worker failures. When enabled, a failure
// is recorded as a message and judged by the Executor; otherwise it aborts the run.
func WithWorkerErrorsAsMessages(enabled bool) EngineOption {
	return func(e *Engine) {
		e.softWorkerErrors = enabled
	}
}

// NewEngine creates an engine over the given catalog and capabilities.
func NewEngine(cat *catalog.Catalog, planner ports.PlanGenerator, oracle ports.DecisionOracle, workers map[domain.WorkerID]ports.Worker, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:          cat,
		planner:          planner,
		oracle:           oracle,
		workers:          make(map[domain.WorkerID]ports.Worker, len(workers)),
		maxReplans:       domain.MaxReplans,
		callTimeout:      DefaultCallTimeout,
		decisionWindow:   DefaultDecisionWindow,
		softWorkerErrors: true,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for id, w := range workers {
		e.workers[id] = w
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxReplans returns the per-step replan cap in effect.
func (e *Engine) MaxReplans() int {
	return e.maxReplans
}

// Step runs the node named by target against state.
// It never modifies state; the returned Delta must be merged with domain.Apply
// before the returned Target is stepped. Errors are fatal for the run.
func (e *Engine) Step(ctx context.Context, state *domain.State, target domain.Target) (domain.Delta, domain.Target, error) {
	if state.Finished {
		return domain.Delta{}, domain.TargetEnd, domain.ErrRunFinished
	}

	e.emitNodeEnter(ctx, state, target)
	start := time.Now()

	var (
		delta domain.Delta
		next  domain.Target
		err   error
	)
	switch target {
	case domain.TargetPlanner:
		delta, next, err = e.plan(ctx, state)
	case domain.TargetExecutor:
		delta, next, err = e.execute(ctx, state)
	default:
		w, ok := target.Worker()
		if !ok {
			err = fmt.Errorf("route to %q: %w", target, domain.ErrUnknownWorker)
			break
		}
		delta, next, err = e.dispatch(ctx, state, w)
	}

	e.emitNodeLeave(ctx, state, target, next, time.Since(start), err)
	if err != nil {
		return domain.Delta{}, "", err
	}
	return delta, next, nil
}

// callContext derives the context for one external call.
func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.callTimeout)
}
