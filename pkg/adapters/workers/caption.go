package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// ErrNoChart is returned when the caption worker runs before any chart exists.
var ErrNoChart = errors.New("no chart has been generated")

// Caption summarizes the chart of the run. It is terminal.
type Caption struct {
	model  llm.Completer
	logger *slog.Logger
}

// NewCaption creates the caption worker.
func NewCaption(model llm.Completer, opts ...Option) *Caption {
	c := newConfig(opts)
	return &Caption{model: model, logger: c.logger.With("worker", domain.WorkerCaption)}
}

var _ ports.Worker = (*Caption)(nil)

type captionPromptData struct {
	Instruction string
	Path        string
	Notes       string
	Findings    []domain.Message
}

func (c *Caption) Execute(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
	if req.Chart == nil {
		return ports.WorkerResult{}, ErrNoChart
	}
	answer, err := ask(ctx, c.model, "caption.tmpl", captionPromptData{
		Instruction: req.Instruction,
		Path:        req.Chart.Path,
		Notes:       req.Chart.Notes,
		Findings:    findings(req.Context),
	}, false)
	if err != nil {
		return ports.WorkerResult{}, fmt.Errorf("caption completion: %w", err)
	}
	return ports.WorkerResult{Answer: answer}, nil
}
