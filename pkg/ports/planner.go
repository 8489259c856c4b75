package ports

import (
	"context"

	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
)

// PlanRequest is what the Planner hands to a PlanGenerator.
type PlanRequest struct {
	Goal string

	// Catalog holds only the workers enabled for the run.
	Catalog []catalog.Entry

	// Replan is set when an existing plan must be revised; PriorPlan and
	// PriorReason then describe what is being revised and why.
	Replan      bool
	PriorPlan   domain.Plan
	PriorReason string
}

// PlanResponse carries the decoded plan and the raw payload it came from.
type PlanResponse struct {
	Plan domain.Plan
	Raw  string
}

// PlanGenerator decomposes a goal into steps.
// A reply that is not well-formed structured data must be reported as an error.
type PlanGenerator interface {
	Generate(ctx context.Context, req PlanRequest) (PlanResponse, error)
}

// PlanGeneratorFunc adapts a function to PlanGenerator.
type PlanGeneratorFunc func(ctx context.Context, req PlanRequest) (PlanResponse, error)

func (f PlanGeneratorFunc) Generate(ctx context.Context, req PlanRequest) (PlanResponse, error) {
	return f(ctx, req)
}
