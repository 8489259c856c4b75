package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// execute decides which worker runs next.
// Right after a replan the oracle is skipped and the revised step is dispatched
// as written; otherwise the oracle judges the current step.
func (e *Engine) execute(ctx context.Context, state *domain.State) (domain.Delta, domain.Target, error) {
	if state.ReplanFlag {
		return e.shortcut(ctx, state)
	}
	return e.decide(ctx, state)
}

func (e *Engine) shortcut(ctx context.Context, state *domain.State) (domain.Delta, domain.Target, error) {
	step := state.CurrentStep
	spec, ok := state.Plan.Step(step)
	if !ok {
		return domain.Delta{}, "", fmt.Errorf("dispatch revised step %d: %w", step, domain.ErrStepOutOfPlan)
	}

	next := domain.WorkerTarget(spec.Worker)
	e.emitDecision(ctx, &domain.DecisionEvent{
		EventBase: domain.NewEventBase(domain.EventDecision, state.RunID),
		Step:      step,
		Shortcut:  true,
		Goto:      next,
		Planned:   spec.Worker,
		Attempts:  state.Attempts(step),
	})
	e.logger.Debug("revised step dispatched", "run_id", state.RunID, "step", step, "worker", spec.Worker)

	return domain.Delta{
		AgentQuery:  domain.Ptr(spec.Action),
		ReplanFlag:  domain.Ptr(false),
		CurrentStep: domain.Ptr(step + 1),
	}, next, nil
}

func (e *Engine) decide(ctx context.Context, state *domain.State) (domain.Delta, domain.Target, error) {
	step := state.CurrentStep
	spec, hasSpec := state.Plan.Step(step)
	attempts := state.Attempts(step)

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	d, err := e.oracle.Decide(callCtx, ports.DecisionRequest{
		UserQuery:      state.UserQuery,
		Step:           step,
		Spec:           spec,
		HasSpec:        hasSpec,
		Attempts:       attempts,
		MaxReplans:     e.maxReplans,
		JustReplanned:  sinceReplan(state.Messages),
		RecentMessages: state.RecentMessages(e.decisionWindow),
		EnabledAgents:  state.EnabledAgents,
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Delta{}, "", ctx.Err()
		}
		return domain.Delta{}, "", &domain.ExecutorDecisionError{Step: step, Reason: "oracle failed", Raw: d.Raw, Cause: err}
	}

	raw := d.Raw
	if raw == "" {
		raw = encodeDecision(d)
	}
	delta := domain.Delta{
		Messages:   []domain.Message{{Author: domain.AuthorExecutor, Content: raw}},
		LastReason: domain.Ptr(d.Reason),
		AgentQuery: domain.Ptr(d.Query),
	}
	event := &domain.DecisionEvent{
		EventBase: domain.NewEventBase(domain.EventDecision, state.RunID),
		Step:      step,
		Replan:    d.Replan,
		Reason:    d.Reason,
		Attempts:  attempts,
	}
	if hasSpec {
		event.Planned = spec.Worker
	}

	if d.Replan {
		if attempts < e.maxReplans {
			delta.ReplanAttempts = map[int]int{step: attempts + 1}
			delta.ReplanFlag = domain.Ptr(true)

			event.Goto = domain.TargetPlanner
			e.emitDecision(ctx, event)
			e.emitReplan(ctx, &domain.ReplanEvent{
				EventBase: domain.NewEventBase(domain.EventReplan, state.RunID),
				Step:      step,
				Attempts:  attempts + 1,
				Reason:    d.Reason,
			})
			e.logger.Info("replan granted", "run_id", state.RunID, "step", step, "attempt", attempts+1, "reason", d.Reason)
			return delta, domain.TargetPlanner, nil
		}

		// Cap reached: move on to whatever the plan holds next.
		fallback := domain.WorkerSynthesizer
		if following, ok := state.Plan.Step(step + 1); ok {
			fallback = following.Worker
		} else if !state.IsEnabled(fallback) {
			return domain.Delta{}, "", fmt.Errorf("advance past step %d with synthesizer disabled: %w", step, domain.ErrStepOutOfPlan)
		}
		delta.CurrentStep = domain.Ptr(step + 1)
		next := domain.WorkerTarget(fallback)

		event.Goto = next
		e.emitDecision(ctx, event)
		e.emitReplanExhausted(ctx, &domain.ReplanEvent{
			EventBase: domain.NewEventBase(domain.EventReplanExhausted, state.RunID),
			Step:      step,
			Attempts:  attempts,
			Reason:    d.Reason,
		})
		e.logger.Warn("replan limit reached, advancing", "run_id", state.RunID, "step", step, "next", fallback)
		return delta, next, nil
	}

	w, ok := d.Goto.Worker()
	if !ok {
		return domain.Delta{}, "", &domain.ExecutorDecisionError{
			Step:   step,
			Reason: fmt.Sprintf("goto %q is not a worker", d.Goto),
			Raw:    d.Raw,
		}
	}
	if !state.IsEnabled(w) {
		return domain.Delta{}, "", &domain.ExecutorDecisionError{
			Step:   step,
			Reason: fmt.Sprintf("worker %s is not enabled for this run", w),
			Raw:    d.Raw,
		}
	}

	delta.ReplanFlag = domain.Ptr(false)
	if hasSpec && w == spec.Worker {
		delta.CurrentStep = domain.Ptr(step + 1)
	}

	next := domain.WorkerTarget(w)
	event.Goto = next
	e.emitDecision(ctx, event)
	e.logger.Debug("executor decision", "run_id", state.RunID, "step", step, "goto", w, "advance", delta.CurrentStep != nil)
	return delta, next, nil
}

// sinceReplan reports whether a revised plan was recorded after the most
// recent Executor decision, i.e. this is the first judgement of its outcome.
func sinceReplan(messages []domain.Message) bool {
	for _, m := range slices.Backward(messages) {
		switch m.Author {
		case domain.AuthorReplan:
			return true
		case domain.AuthorExecutor:
			return false
		}
	}
	return false
}

func encodeDecision(d ports.Decision) string {
	b, _ := json.Marshal(map[string]any{
		"replan": d.Replan,
		"goto":   d.Goto,
		"reason": d.Reason,
		"query":  d.Query,
	})
	return string(b)
}
