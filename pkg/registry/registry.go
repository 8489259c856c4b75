// Package registry collects the worker implementations available to an engine.
package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// Registry manages the available workers.
type Registry struct {
	mu      sync.RWMutex
	workers map[domain.WorkerID]ports.Worker
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[domain.WorkerID]ports.Worker),
	}
}

// Register adds a worker under id.
// If a worker with the same id exists, it is overwritten.
func (r *Registry) Register(id domain.WorkerID, w ports.Worker) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownWorker, id)
	}
	if w == nil {
		return fmt.Errorf("worker %s: nil implementation", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[id] = w
	return nil
}

// IDs returns the registered ids in canonical worker order.
func (r *Registry) IDs() []domain.WorkerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WorkerID, 0, len(r.workers))
	for _, id := range domain.Workers() {
		if _, ok := r.workers[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Workers returns a snapshot of the registry suitable for the engine.
func (r *Registry) Workers() map[domain.WorkerID]ports.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.WorkerID]ports.Worker, len(r.workers))
	for id, w := range r.workers {
		out[id] = w
	}
	return out
}
