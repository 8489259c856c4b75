package runtime

import (
	"context"
	"time"

	"github.com/aretw0/conductor/pkg/domain"
)

func (e *Engine) emitNodeEnter(ctx context.Context, state *domain.State, node domain.Target) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.NewEventBase(domain.EventNodeEnter, state.RunID),
		Node:      node,
		Step:      state.CurrentStep,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, state *domain.State, node, next domain.Target, d time.Duration, err error) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.NewEventBase(domain.EventNodeLeave, state.RunID),
		Node:      node,
		Step:      state.CurrentStep,
		Next:      next,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitDecision(ctx context.Context, ev *domain.DecisionEvent) {
	if e.hooks.OnDecision != nil {
		e.hooks.OnDecision(ctx, ev)
	}
}

func (e *Engine) emitReplan(ctx context.Context, ev *domain.ReplanEvent) {
	if e.hooks.OnReplan != nil {
		e.hooks.OnReplan(ctx, ev)
	}
}

func (e *Engine) emitReplanExhausted(ctx context.Context, ev *domain.ReplanEvent) {
	if e.hooks.OnReplanExhausted != nil {
		e.hooks.OnReplanExhausted(ctx, ev)
	}
}

func (e *Engine) emitWorkerCall(ctx context.Context, ev *domain.WorkerEvent) {
	if e.hooks.OnWorkerCall != nil {
		e.hooks.OnWorkerCall(ctx, ev)
	}
}

func (e *Engine) emitWorkerReturn(ctx context.Context, ev *domain.WorkerEvent) {
	if e.hooks.OnWorkerReturn != nil {
		e.hooks.OnWorkerReturn(ctx, ev)
	}
}
