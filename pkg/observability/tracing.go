package observability

import (
	"context"
	"sync"

	"github.com/aretw0/conductor/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens one span per node visit. A run executes one node at a time,
// so the open span is keyed by run id.
type Tracing struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTracing creates a Tracing over tracer.
func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer, spans: make(map[string]trace.Span)}
}

// Hooks returns the lifecycle hooks that open and close spans.
func (t *Tracing) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter:       t.enter,
		OnNodeLeave:       t.leave,
		OnDecision:        t.decision,
		OnReplan:          t.replan("replan"),
		OnReplanExhausted: t.replan("replan_exhausted"),
		OnWorkerReturn:    t.workerReturn,
	}
}

func (t *Tracing) enter(ctx context.Context, e *domain.NodeEvent) {
	_, span := t.tracer.Start(ctx, "conductor.node."+nodeLabel(e.Node), trace.WithAttributes(
		attribute.String("conductor.run_id", e.RunID),
		attribute.String("conductor.node", e.Node.String()),
		attribute.Int("conductor.step", e.Step),
	))

	t.mu.Lock()
	if prev, ok := t.spans[e.RunID]; ok {
		prev.End()
	}
	t.spans[e.RunID] = span
	t.mu.Unlock()
}

func (t *Tracing) leave(_ context.Context, e *domain.NodeEvent) {
	t.mu.Lock()
	span, ok := t.spans[e.RunID]
	delete(t.spans, e.RunID)
	t.mu.Unlock()
	if !ok {
		return
	}

	if e.Next != "" {
		span.SetAttributes(attribute.String("conductor.next", e.Next.String()))
	}
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}

func (t *Tracing) current(runID string) (trace.Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.spans[runID]
	return span, ok
}

func (t *Tracing) decision(_ context.Context, e *domain.DecisionEvent) {
	span, ok := t.current(e.RunID)
	if !ok {
		return
	}
	span.AddEvent("decision", trace.WithAttributes(
		attribute.String("conductor.goto", e.Goto.String()),
		attribute.Bool("conductor.replan", e.Replan),
		attribute.Bool("conductor.shortcut", e.Shortcut),
		attribute.Int("conductor.attempts", e.Attempts),
	))
}

func (t *Tracing) replan(name string) func(context.Context, *domain.ReplanEvent) {
	return func(_ context.Context, e *domain.ReplanEvent) {
		span, ok := t.current(e.RunID)
		if !ok {
			return
		}
		span.AddEvent(name, trace.WithAttributes(
			attribute.Int("conductor.step", e.Step),
			attribute.Int("conductor.attempts", e.Attempts),
			attribute.String("conductor.reason", e.Reason),
		))
	}
}

func (t *Tracing) workerReturn(_ context.Context, e *domain.WorkerEvent) {
	span, ok := t.current(e.RunID)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("conductor.worker", e.Worker.String()),
		attribute.Bool("conductor.worker_error", e.IsError),
	)
	if e.IsError {
		span.SetStatus(codes.Error, "worker reported an error")
	}
}

// Open reports how many node spans are still open.
func (t *Tracing) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}
