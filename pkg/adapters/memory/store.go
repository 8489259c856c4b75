package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/conductor/pkg/domain"
)

// Store implements ports.TranscriptStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Transcript
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Transcript),
	}
}

// Save persists a copy of the transcript.
func (s *Store) Save(ctx context.Context, t *domain.Transcript) error {
	copied := clone(t)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[t.RunID] = copied
	return nil
}

// Load retrieves the transcript.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	// Copy on read so callers can't mutate the stored record through the pointer.
	return clone(t), nil
}

// Delete removes the transcript.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns archived run ids, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Collect(maps.Keys(s.data))
	slices.SortFunc(ids, func(a, b string) int {
		if c := s.data[a].StartedAt.Compare(s.data[b].StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return ids, nil
}

func clone(t *domain.Transcript) *domain.Transcript {
	c := *t
	c.EnabledAgents = slices.Clone(t.EnabledAgents)
	c.Plan = t.Plan.Clone()
	c.Messages = slices.Clone(t.Messages)
	c.ReplanAttempts = maps.Clone(t.ReplanAttempts)
	if t.Chart != nil {
		chart := *t.Chart
		c.Chart = &chart
	}
	return &c
}
