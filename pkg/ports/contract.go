package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTranscriptStoreContract runs a suite of tests to verify that a
// TranscriptStore implementation adheres to the interface contract.
func RunTranscriptStoreContract(t *testing.T, store TranscriptStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	sample := func(id string) *domain.Transcript {
		s := domain.NewState(id, "how many invoices?", []domain.WorkerID{domain.WorkerQuery, domain.WorkerSynthesizer})
		s.Plan = domain.Plan{
			1: {Worker: domain.WorkerQuery, Action: "count invoices"},
			2: {Worker: domain.WorkerSynthesizer, Action: "answer"},
		}
		s.ReplanAttempts[1] = 2
		s.Messages = append(s.Messages, domain.Message{Author: string(domain.WorkerSynthesizer), Content: "42 invoices"})
		s.FinalAnswer = "42 invoices"
		s.Finished = true
		started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		return domain.NewTranscript(s, nil, started, started.Add(time.Second))
	}

	t.Run("Save and Load", func(t *testing.T) {
		want := sample(runID)
		require.NoError(t, store.Save(ctx, want), "Save should not return error")

		got, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, want.RunID, got.RunID)
		assert.Equal(t, want.Answer, got.Answer)
		assert.Equal(t, want.Plan, got.Plan)
		assert.Equal(t, want.Messages, got.Messages)
		assert.Equal(t, 2, got.ReplanAttempts[1])
		assert.True(t, want.StartedAt.Equal(got.StartedAt))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		got, err := store.Load(ctx, runID)
		require.NoError(t, err)
		got.Messages[0].Content = "mutated"

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Messages[0].Content)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := runID+"-1", runID+"-2"
		require.NoError(t, store.Save(ctx, sample(id1)))
		require.NoError(t, store.Save(ctx, sample(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "deleting twice is not an error")
	})
}
