package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracing(t *testing.T) (*observability.Tracing, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return observability.NewTracing(tp.Tracer("test")), rec
}

func TestTracing_SpanPerNode(t *testing.T) {
	tr, rec := newTracing(t)
	hooks := tr.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "r1"}, Node: domain.TargetPlanner})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "r1"}, Node: domain.TargetPlanner, Next: domain.TargetExecutor})

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "r1"}, Node: domain.TargetExecutor})
	hooks.OnDecision(ctx, &domain.DecisionEvent{EventBase: domain.EventBase{RunID: "r1"}, Goto: domain.TargetPlanner, Replan: true})
	hooks.OnReplan(ctx, &domain.ReplanEvent{EventBase: domain.EventBase{RunID: "r1"}, Reason: "empty result"})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "r1"}, Node: domain.TargetExecutor, Next: domain.TargetPlanner})

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "conductor.node.planner", spans[0].Name())
	assert.Equal(t, "conductor.node.executor", spans[1].Name())

	events := spans[1].Events()
	require.Len(t, events, 2)
	assert.Equal(t, "decision", events[0].Name)
	assert.Equal(t, "replan", events[1].Name)
	assert.Zero(t, tr.Open())
}

func TestTracing_RecordsErrors(t *testing.T) {
	tr, rec := newTracing(t)
	hooks := tr.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "r2"}, Node: domain.TargetPlanner})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "r2"}, Node: domain.TargetPlanner, Err: errors.New("bad plan")})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "bad plan", spans[0].Status().Description)
}

func TestTracing_RunsAreIndependent(t *testing.T) {
	tr, rec := newTracing(t)
	hooks := tr.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "a"}, Node: domain.TargetPlanner})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "b"}, Node: domain.TargetPlanner})
	assert.Equal(t, 2, tr.Open())

	hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "a"}, Node: domain.TargetPlanner})
	assert.Equal(t, 1, tr.Open())
	assert.Len(t, rec.Ended(), 1)

	// Leaving an unknown run is a no-op.
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: domain.EventBase{RunID: "zzz"}})
	assert.Len(t, rec.Ended(), 1)
}
