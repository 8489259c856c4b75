package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/conductor/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Node and worker traffic is logged
// at debug level; decisions and replans at info; exhausted replans at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node", e.Node, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "node_leave", "run_id", e.RunID, "node", e.Node, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node", e.Node, "next", e.Next, "duration", e.Duration)
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			logger.InfoContext(ctx, "decision",
				"run_id", e.RunID,
				"step", e.Step,
				"goto", e.Goto,
				"planned", e.Planned,
				"replan", e.Replan,
				"shortcut", e.Shortcut,
				"attempts", e.Attempts,
			)
		},
		OnReplan: func(ctx context.Context, e *domain.ReplanEvent) {
			logger.InfoContext(ctx, "replan", "run_id", e.RunID, "step", e.Step, "attempts", e.Attempts, "reason", e.Reason)
		},
		OnReplanExhausted: func(ctx context.Context, e *domain.ReplanEvent) {
			logger.WarnContext(ctx, "replan_exhausted", "run_id", e.RunID, "step", e.Step, "attempts", e.Attempts, "reason", e.Reason)
		},
		OnWorkerCall: func(ctx context.Context, e *domain.WorkerEvent) {
			logger.DebugContext(ctx, "worker_call", "run_id", e.RunID, "worker", e.Worker, "instruction", e.Instruction)
		},
		OnWorkerReturn: func(ctx context.Context, e *domain.WorkerEvent) {
			logger.DebugContext(ctx, "worker_return", "run_id", e.RunID, "worker", e.Worker, "duration", e.Duration, "is_error", e.IsError)
		},
	}
}
