// Package llm implements the plan generator and decision oracle ports on top
// of a chat completion model.
//
// Prompts live in embedded text/template files. Replies are reduced to their
// first JSON object, validated against the versioned wire schemas and only
// then decoded, so a malformed reply is always reported as an error.
package llm

import (
	"context"

	"github.com/aretw0/conductor/pkg/adapters/openai"
)

// Completer sends a conversation to a model and returns its reply.
// *openai.Client satisfies it.
type Completer interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req openai.ChatRequest) (string, error)

func (f CompleterFunc) Chat(ctx context.Context, req openai.ChatRequest) (string, error) {
	return f(ctx, req)
}

var _ Completer = (*openai.Client)(nil)
