package workers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/adapters/openai"
	"github.com/aretw0/conductor/pkg/domain"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

var prompts = template.Must(template.New("workers").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(promptFiles, "prompts/*.tmpl"))

// Option configures a capability.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	rowLimit      int
	queryAttempts int
	searchResults int
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRowLimit caps the rows a query result hands back to the run.
func WithRowLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.rowLimit = n
		}
	}
}

// WithQueryAttempts sets how many statements the model may write per call.
// Each retry sees the previous statement and its error.
func WithQueryAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queryAttempts = n
		}
	}
}

// WithSearchResults sets how many search results the researcher digests.
func WithSearchResults(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.searchResults = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:        logging.NewNop(),
		rowLimit:      DefaultRowLimit,
		queryAttempts: 2,
		searchResults: 5,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// ask renders the named prompt and returns the trimmed model reply.
func ask(ctx context.Context, model llm.Completer, name string, data any, asJSON bool) (string, error) {
	prompt, err := render(name, data)
	if err != nil {
		return "", err
	}
	reply, err := model.Chat(ctx, openai.ChatRequest{
		Messages: []openai.Message{{Role: "user", Content: prompt}},
		JSON:     asJSON,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// findings returns the messages produced by workers, oldest first.
// Plans, decisions and the request itself are left out.
func findings(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if domain.WorkerID(m.Author).Valid() {
			out = append(out, m)
		}
	}
	return out
}
