package runtime

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// ToolErrorPrefix starts the message recorded for a failed worker call.
const ToolErrorPrefix = "Tool Execution Error: "

// DefaultCaptionAction instructs the caption worker when the plan holds no
// caption step after the chart.
const DefaultCaptionAction = "Explain the chart in at most three sentences."

// dispatch invokes a worker and turns its result into a delta.
// Terminal workers finish the run; everything else returns to the Executor.
func (e *Engine) dispatch(ctx context.Context, state *domain.State, w domain.WorkerID) (domain.Delta, domain.Target, error) {
	worker, ok := e.workers[w]
	if !ok {
		return domain.Delta{}, "", fmt.Errorf("dispatch %s: %w", w, domain.ErrWorkerNotRegistered)
	}

	req := ports.WorkerRequest{
		Worker:      w,
		Instruction: state.AgentQuery,
		UserQuery:   state.UserQuery,
		Context:     slices.Clone(state.Messages),
	}
	if c, ok := domain.ChartOf(state); ok {
		req.Chart = c
	}

	e.emitWorkerCall(ctx, &domain.WorkerEvent{
		EventBase:   domain.NewEventBase(domain.EventWorkerCall, state.RunID),
		Worker:      w,
		Instruction: req.Instruction,
	})

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := worker.Execute(callCtx, req)

	e.emitWorkerReturn(ctx, &domain.WorkerEvent{
		EventBase: domain.NewEventBase(domain.EventWorkerReturn, state.RunID),
		Worker:    w,
		Duration:  time.Since(start),
		IsError:   err != nil,
	})

	if err != nil {
		if ctx.Err() != nil {
			return domain.Delta{}, "", ctx.Err()
		}
		werr := &domain.WorkerCapabilityError{Worker: w, Cause: err}
		if !e.softWorkerErrors {
			return domain.Delta{}, "", werr
		}
		e.logger.Warn("worker failed", "run_id", state.RunID, "worker", w, "err", err)
		return domain.Delta{
			Messages: []domain.Message{{Author: string(w), Content: ToolErrorPrefix + err.Error()}},
		}, domain.TargetExecutor, nil
	}

	delta := domain.Delta{Messages: attribute(res, w)}
	if res.Chart != nil {
		c := *res.Chart
		delta.Chart = &c
	}

	if !w.Terminal() {
		if w == domain.WorkerChart {
			if next, ok := e.captionHandoff(ctx, state, res, &delta); ok {
				return delta, next, nil
			}
		}
		return delta, domain.TargetExecutor, nil
	}

	answer := res.Answer
	if answer == "" {
		answer = delta.Messages[len(delta.Messages)-1].Content
	}
	delta.FinalAnswer = domain.Ptr(answer)
	e.logger.Info("run finished", "run_id", state.RunID, "worker", w)
	return delta, domain.TargetEnd, nil
}

// captionHandoff routes a rendered chart straight to the caption worker,
// using the caption step's action and moving past that step.
// It reports false when no chart was produced or the caption cannot run.
func (e *Engine) captionHandoff(ctx context.Context, state *domain.State, res ports.WorkerResult, delta *domain.Delta) (domain.Target, bool) {
	if res.Chart == nil {
		if _, ok := domain.ExtractChart(delta.Messages); !ok {
			return "", false
		}
	}
	if !state.IsEnabled(domain.WorkerCaption) {
		return "", false
	}
	if _, ok := e.workers[domain.WorkerCaption]; !ok {
		return "", false
	}

	step := state.CurrentStep
	action := DefaultCaptionAction
	for i := step; ; i++ {
		spec, ok := state.Plan.Step(i)
		if !ok {
			break
		}
		if spec.Worker == domain.WorkerCaption {
			action = spec.Action
			delta.CurrentStep = domain.Ptr(i + 1)
			step = i
			break
		}
	}
	delta.AgentQuery = domain.Ptr(action)

	next := domain.WorkerTarget(domain.WorkerCaption)
	e.emitDecision(ctx, &domain.DecisionEvent{
		EventBase: domain.NewEventBase(domain.EventDecision, state.RunID),
		Step:      step,
		Shortcut:  true,
		Goto:      next,
		Planned:   domain.WorkerCaption,
		Reason:    "chart rendered",
		Attempts:  state.Attempts(step),
	})
	e.logger.Debug("chart handed to caption", "run_id", state.RunID, "step", step)
	return next, true
}

// attribute returns the messages a worker contributes, tagged with its id.
// A chart result always ends with the path and notes markers.
func attribute(res ports.WorkerResult, w domain.WorkerID) []domain.Message {
	msgs := slices.Clone(res.Messages)
	for i := range msgs {
		if msgs[i].Author == "" {
			msgs[i].Author = string(w)
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, domain.Message{Author: string(w), Content: res.Answer})
	}

	if res.Chart != nil {
		last := &msgs[len(msgs)-1]
		if !strings.Contains(last.Content, domain.ChartPathMarker) {
			if last.Content != "" {
				last.Content += "\n"
			}
			last.Content += domain.FormatChartMarkers(*res.Chart)
		}
	}
	return msgs
}
