package workers

import (
	"context"
	"fmt"

	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// Synthesizer writes the final answer from every finding of the run. It is terminal.
type Synthesizer struct {
	model llm.Completer
}

// NewSynthesizer creates the synthesizer worker.
func NewSynthesizer(model llm.Completer) *Synthesizer {
	return &Synthesizer{model: model}
}

var _ ports.Worker = (*Synthesizer)(nil)

type synthesizePromptData struct {
	UserQuery   string
	Instruction string
	Findings    []domain.Message
}

func (s *Synthesizer) Execute(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
	answer, err := ask(ctx, s.model, "synthesize.tmpl", synthesizePromptData{
		UserQuery:   req.UserQuery,
		Instruction: req.Instruction,
		Findings:    findings(req.Context),
	}, false)
	if err != nil {
		return ports.WorkerResult{}, fmt.Errorf("synthesis completion: %w", err)
	}
	return ports.WorkerResult{Answer: answer}, nil
}
