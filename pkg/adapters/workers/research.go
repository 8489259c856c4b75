package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// Research digests web search results with citations.
type Research struct {
	model   llm.Completer
	search  Searcher
	maxHits int
	logger  *slog.Logger
}

// NewResearch creates the research worker.
func NewResearch(model llm.Completer, search Searcher, opts ...Option) *Research {
	c := newConfig(opts)
	return &Research{
		model:   model,
		search:  search,
		maxHits: c.searchResults,
		logger:  c.logger.With("worker", domain.WorkerResearch),
	}
}

var _ ports.Worker = (*Research)(nil)

type researchPromptData struct {
	Instruction string
	Results     []SearchResult
}

func (r *Research) Execute(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
	query := req.Instruction
	if query == "" {
		query = req.UserQuery
	}
	results, err := r.search.Search(ctx, query, r.maxHits)
	if err != nil {
		return ports.WorkerResult{}, err
	}
	r.logger.Debug("search completed", "results", len(results))
	if len(results) == 0 {
		return ports.WorkerResult{Messages: []domain.Message{{Content: fmt.Sprintf("No web results found for %q.", query)}}}, nil
	}

	digest, err := ask(ctx, r.model, "research.tmpl", researchPromptData{Instruction: query, Results: results}, false)
	if err != nil {
		return ports.WorkerResult{}, fmt.Errorf("research completion: %w", err)
	}

	var b strings.Builder
	b.WriteString(digest)
	b.WriteString("\n\nSources:")
	for i, res := range results {
		fmt.Fprintf(&b, "\n[%d] %s", i+1, res.URL)
	}
	return ports.WorkerResult{Messages: []domain.Message{{Content: b.String()}}}, nil
}
