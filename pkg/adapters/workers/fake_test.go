package workers

import (
	"context"
	"sync"

	"github.com/aretw0/conductor/pkg/adapters/openai"
)

// fakeModel replies from a queue and records every prompt.
// When the queue runs dry the last reply is repeated.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func newFakeModel(replies ...string) *fakeModel {
	return &fakeModel{replies: replies}
}

func (f *fakeModel) Chat(_ context.Context, req openai.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range req.Messages {
		f.prompts = append(f.prompts, m.Content)
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
