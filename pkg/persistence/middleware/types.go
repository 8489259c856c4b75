// Package middleware wraps a transcript store with encryption at rest and
// PII redaction.
package middleware

import "github.com/aretw0/conductor/pkg/ports"

// Middleware allows wrapping a TranscriptStore to add behavior.
type Middleware func(ports.TranscriptStore) ports.TranscriptStore

// Chain wraps store with each middleware in order, so the first one listed
// sees every call first.
func Chain(store ports.TranscriptStore, mws ...Middleware) ports.TranscriptStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
