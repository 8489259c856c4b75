package domain

import (
	"fmt"
	"slices"
	"strings"
)

// WorkerID identifies a worker capability. The set of identities is closed:
// anything not listed here is rejected at the boundary.
type WorkerID string

const (
	WorkerQuery       WorkerID = "text2sql_agent"   // Structured query translation and execution
	WorkerChart       WorkerID = "chart_generator"  // Chart rendering
	WorkerCaption     WorkerID = "chart_summarizer" // Chart caption, terminal
	WorkerResearch    WorkerID = "web_researcher"   // Web search digest
	WorkerSynthesizer WorkerID = "synthesizer"      // Final prose answer, terminal
)

var knownWorkers = []WorkerID{
	WorkerQuery,
	WorkerChart,
	WorkerCaption,
	WorkerResearch,
	WorkerSynthesizer,
}

// Workers returns every known worker identity in canonical order.
func Workers() []WorkerID {
	return slices.Clone(knownWorkers)
}

// ParseWorkerID converts free text into a WorkerID.
// It returns ErrUnknownWorker for identities outside the closed set.
func ParseWorkerID(s string) (WorkerID, error) {
	id := WorkerID(strings.TrimSpace(s))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorker, s)
	}
	return id, nil
}

// ParseWorkerIDs parses a list of identities, failing on the first unknown one.
func ParseWorkerIDs(values []string) ([]WorkerID, error) {
	ids := make([]WorkerID, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		id, err := ParseWorkerID(v)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Valid reports whether w belongs to the closed set.
func (w WorkerID) Valid() bool {
	return slices.Contains(knownWorkers, w)
}

// Terminal reports whether completing w ends the run.
func (w WorkerID) Terminal() bool {
	return w == WorkerCaption || w == WorkerSynthesizer
}

func (w WorkerID) String() string {
	return string(w)
}
