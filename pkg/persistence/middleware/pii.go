package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// Mask replaces every redacted span.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, card-like digit runs and
// phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b(?:\d[ -]?){13,16}\b`,
	`\+?\d{1,3}[ .-]?\(?\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{4}\b`,
}

type piiMiddleware struct {
	next     ports.TranscriptStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks text matching the patterns
// in the query, answer, plan, messages and error of every saved transcript.
// It panics on an invalid pattern.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.TranscriptStore) ports.TranscriptStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, t *domain.Transcript) error {
	// Copy so the caller's transcript is untouched.
	masked := *t
	masked.UserQuery = m.mask(t.UserQuery)
	masked.Answer = m.mask(t.Answer)
	masked.Error = m.mask(t.Error)

	masked.Messages = make([]domain.Message, len(t.Messages))
	for i, msg := range t.Messages {
		masked.Messages[i] = domain.Message{Author: msg.Author, Content: m.mask(msg.Content)}
	}
	if t.Plan != nil {
		masked.Plan = make(domain.Plan, len(t.Plan))
		for i, spec := range t.Plan {
			masked.Plan[i] = domain.StepSpec{Worker: spec.Worker, Action: m.mask(spec.Action)}
		}
	}
	return m.next.Save(ctx, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.Transcript, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
