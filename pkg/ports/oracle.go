package ports

import (
	"context"

	"github.com/aretw0/conductor/pkg/domain"
)

// DecisionRequest is the step context the Executor hands to a DecisionOracle.
type DecisionRequest struct {
	UserQuery string
	Step      int

	// Spec is the plan entry at Step. HasSpec is false when the step pointer
	// has run past the end of the plan.
	Spec    domain.StepSpec
	HasSpec bool

	Attempts      int
	MaxReplans    int
	JustReplanned bool

	RecentMessages []domain.Message
	EnabledAgents  []domain.WorkerID
}

// Decision is the oracle's verdict for the current step.
// Goto is a worker target, or the planner target when Replan is set.
type Decision struct {
	Replan bool
	Goto   domain.Target
	Reason string
	Query  string
	Raw    string
}

// DecisionOracle judges progress on the current step and selects the next worker.
// A reply that is not well-formed structured data must be reported as an error.
type DecisionOracle interface {
	Decide(ctx context.Context, req DecisionRequest) (Decision, error)
}

// DecisionOracleFunc adapts a function to DecisionOracle.
type DecisionOracleFunc func(ctx context.Context, req DecisionRequest) (Decision, error)

func (f DecisionOracleFunc) Decide(ctx context.Context, req DecisionRequest) (Decision, error) {
	return f(ctx, req)
}
