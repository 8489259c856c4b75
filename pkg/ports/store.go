package ports

import (
	"context"

	"github.com/aretw0/conductor/pkg/domain"
)

// TranscriptStore archives finished runs.
// Transcripts are write-once records for inspection; runs are never resumed from them.
type TranscriptStore interface {
	// Save persists the transcript under its RunID, replacing any previous one.
	Save(ctx context.Context, t *domain.Transcript) error

	// Load retrieves a transcript.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Transcript, error)

	// List returns the archived run IDs.
	List(ctx context.Context) ([]string, error)

	// Delete removes a transcript. Deleting a missing run is not an error.
	Delete(ctx context.Context, runID string) error
}
