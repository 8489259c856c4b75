package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// plan produces a fresh plan, or a revised one when the replan flag is set.
func (e *Engine) plan(ctx context.Context, state *domain.State) (domain.Delta, domain.Target, error) {
	replan := state.ReplanFlag
	req := ports.PlanRequest{
		Goal:    state.UserQuery,
		Catalog: e.catalog.Filter(state.EnabledAgents).Entries(),
		Replan:  replan,
	}
	if replan {
		req.PriorPlan = state.Plan.Clone()
		req.PriorReason = state.LastReason
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	resp, err := e.planner.Generate(callCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Delta{}, "", ctx.Err()
		}
		return domain.Delta{}, "", &domain.PlanGenerationError{Reason: "generator failed", Raw: resp.Raw, Cause: err}
	}
	if err := e.catalog.ValidatePlan(resp.Plan, state.EnabledAgents); err != nil {
		return domain.Delta{}, "", &domain.PlanGenerationError{Reason: "plan violates policy", Raw: resp.Raw, Cause: err}
	}

	author, step := domain.AuthorInitialPlan, 1
	if replan {
		author, step = domain.AuthorReplan, state.CurrentStep
		if _, ok := resp.Plan.Step(step); !ok {
			return domain.Delta{}, "", &domain.PlanGenerationError{
				Reason: fmt.Sprintf("revised plan has no step %d", step),
				Raw:    resp.Raw,
				Cause:  domain.ErrStepOutOfPlan,
			}
		}
	}

	content := resp.Raw
	if content == "" {
		b, _ := json.Marshal(resp.Plan)
		content = string(b)
	}

	e.logger.Info("plan accepted",
		"run_id", state.RunID,
		"replan", replan,
		"steps", len(resp.Plan),
		"step", step,
	)

	return domain.Delta{
		Plan:        resp.Plan.Clone(),
		CurrentStep: domain.Ptr(step),
		LastReason:  domain.Ptr(""),
		Messages:    []domain.Message{{Author: author, Content: content}},
	}, domain.TargetExecutor, nil
}
