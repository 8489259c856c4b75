// Package catalog holds the immutable registry of worker descriptions that the
// Planner and DecisionOracle reason about, together with the structural plan
// policy derived from it.
package catalog

import (
	"fmt"
	"slices"

	"github.com/aretw0/conductor/pkg/domain"
)

// PositionKind names a positional rule a worker imposes on a plan.
type PositionKind string

const (
	PositionLast     PositionKind = "last"     // must be the final step
	PositionPrecedes PositionKind = "precedes" // must be immediately followed by Worker
	PositionFollows  PositionKind = "follows"  // must immediately follow Worker
)

// Position is a positional constraint attached to a catalog entry.
type Position struct {
	Kind   PositionKind    `json:"kind" yaml:"kind" mapstructure:"kind"`
	Worker domain.WorkerID `json:"worker,omitempty" yaml:"worker,omitempty" mapstructure:"worker"`
}

// Describe renders the constraint as prompt-friendly text.
func (p Position) Describe() string {
	switch p.Kind {
	case PositionLast:
		return "must be the last step of the plan"
	case PositionPrecedes:
		return fmt.Sprintf("must immediately precede %s", p.Worker)
	case PositionFollows:
		return fmt.Sprintf("must immediately follow %s", p.Worker)
	}
	return ""
}

// Entry describes one worker capability.
type Entry struct {
	ID           domain.WorkerID `json:"id" yaml:"id" mapstructure:"id"`
	Name         string          `json:"name" yaml:"name" mapstructure:"name"`
	Capability   string          `json:"capability" yaml:"capability" mapstructure:"capability"`
	UseWhen      string          `json:"use_when" yaml:"use_when" mapstructure:"use_when"`
	Limitations  string          `json:"limitations,omitempty" yaml:"limitations" mapstructure:"limitations"`
	OutputFormat string          `json:"output_format,omitempty" yaml:"output_format" mapstructure:"output_format"`
	Positions    []Position      `json:"positions,omitempty" yaml:"positions" mapstructure:"positions"`
}

// Constraints returns the positional rules as text.
func (e Entry) Constraints() []string {
	out := make([]string, 0, len(e.Positions))
	for _, p := range e.Positions {
		out = append(out, p.Describe())
	}
	return out
}

func (e Entry) clone() Entry {
	e.Positions = slices.Clone(e.Positions)
	return e
}

// Catalog is an immutable, ordered set of entries keyed by worker id.
type Catalog struct {
	order   []domain.WorkerID
	entries map[domain.WorkerID]Entry
}

// New validates the entries and builds a catalog preserving their order.
func New(entries ...Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[domain.WorkerID]Entry, len(entries))}
	for _, e := range entries {
		if !e.ID.Valid() {
			return nil, fmt.Errorf("catalog entry: %w: %q", domain.ErrUnknownWorker, e.ID)
		}
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("catalog entry %s declared twice", e.ID)
		}
		for _, p := range e.Positions {
			if err := validatePosition(p); err != nil {
				return nil, fmt.Errorf("catalog entry %s: %w", e.ID, err)
			}
		}
		c.order = append(c.order, e.ID)
		c.entries[e.ID] = e.clone()
	}
	return c, nil
}

func validatePosition(p Position) error {
	switch p.Kind {
	case PositionLast:
		return nil
	case PositionPrecedes, PositionFollows:
		if !p.Worker.Valid() {
			return fmt.Errorf("position %s: %w: %q", p.Kind, domain.ErrUnknownWorker, p.Worker)
		}
		return nil
	}
	return fmt.Errorf("unknown position kind %q", p.Kind)
}

// Get returns the entry for id.
func (c *Catalog) Get(id domain.WorkerID) (Entry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Has reports whether id is described.
func (c *Catalog) Has(id domain.WorkerID) bool {
	_, ok := c.entries[id]
	return ok
}

// IDs returns the worker ids in catalog order.
func (c *Catalog) IDs() []domain.WorkerID {
	return slices.Clone(c.order)
}

// Entries returns copies of every entry in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].clone())
	}
	return out
}

// Filter returns the sub-catalog restricted to enabled, in catalog order.
func (c *Catalog) Filter(enabled []domain.WorkerID) *Catalog {
	sub := &Catalog{entries: make(map[domain.WorkerID]Entry)}
	for _, id := range c.order {
		if slices.Contains(enabled, id) {
			sub.order = append(sub.order, id)
			sub.entries[id] = c.entries[id]
		}
	}
	return sub
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.order)
}
