package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter       EventType = "node_enter"
	EventNodeLeave       EventType = "node_leave"
	EventDecision        EventType = "decision"
	EventReplan          EventType = "replan"
	EventReplanExhausted EventType = "replan_exhausted"
	EventWorkerCall      EventType = "worker_call"
	EventWorkerReturn    EventType = "worker_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// NewEventBase stamps an event of type t for the run.
func NewEventBase(t EventType, runID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, RunID: runID}
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	Node     Target        `json:"node"`
	Step     int           `json:"step"`
	Next     Target        `json:"next,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// DecisionEvent records a routing decision. Shortcut is true when the
// oracle was bypassed: right after a replan, or when a rendered chart is
// handed to the caption worker.
type DecisionEvent struct {
	EventBase
	Step     int      `json:"step"`
	Shortcut bool     `json:"shortcut"`
	Replan   bool     `json:"replan"`
	Goto     Target   `json:"goto"`
	Planned  WorkerID `json:"planned,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Attempts int      `json:"attempts"`
}

// ReplanEvent is emitted when a replan is granted or refused at the cap.
type ReplanEvent struct {
	EventBase
	Step     int    `json:"step"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason,omitempty"`
}

// WorkerEvent represents a worker capability call.
type WorkerEvent struct {
	EventBase
	Worker      WorkerID      `json:"worker"`
	Instruction string        `json:"instruction,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	IsError     bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for run observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnNodeEnter       func(context.Context, *NodeEvent)
	OnNodeLeave       func(context.Context, *NodeEvent)
	OnDecision        func(context.Context, *DecisionEvent)
	OnReplan          func(context.Context, *ReplanEvent)
	OnReplanExhausted func(context.Context, *ReplanEvent)
	OnWorkerCall      func(context.Context, *WorkerEvent)
	OnWorkerReturn    func(context.Context, *WorkerEvent)
}

// MergeHooks fans every callback out to each of the given hook sets in order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range sets {
		merged.OnNodeEnter = chain(merged.OnNodeEnter, h.OnNodeEnter)
		merged.OnNodeLeave = chain(merged.OnNodeLeave, h.OnNodeLeave)
		merged.OnDecision = chain(merged.OnDecision, h.OnDecision)
		merged.OnReplan = chain(merged.OnReplan, h.OnReplan)
		merged.OnReplanExhausted = chain(merged.OnReplanExhausted, h.OnReplanExhausted)
		merged.OnWorkerCall = chain(merged.OnWorkerCall, h.OnWorkerCall)
		merged.OnWorkerReturn = chain(merged.OnWorkerReturn, h.OnWorkerReturn)
	}
	return merged
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
