package ports

import (
	"context"

	"github.com/aretw0/conductor/pkg/domain"
)

// WorkerRequest is the uniform input of every worker capability.
type WorkerRequest struct {
	Worker      domain.WorkerID
	Instruction string
	UserQuery   string

	// Context is a copy of the run's message log.
	Context []domain.Message

	// Chart is the artifact produced earlier in the run, if any.
	Chart *domain.ChartArtifact
}

// WorkerResult is what a capability hands back to the dispatcher.
type WorkerResult struct {
	// Messages are appended to the run log. Messages without an author are
	// attributed to the worker.
	Messages []domain.Message

	// Answer is the final answer. Only terminal workers set it.
	Answer string

	// Chart is set by the chart worker.
	Chart *domain.ChartArtifact
}

// Worker performs one external capability.
// Side effects (files, queries, network calls) belong here, never to the core.
type Worker interface {
	Execute(ctx context.Context, req WorkerRequest) (WorkerResult, error)
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, req WorkerRequest) (WorkerResult, error)

func (f WorkerFunc) Execute(ctx context.Context, req WorkerRequest) (WorkerResult, error) {
	return f(ctx, req)
}
