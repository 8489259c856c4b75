package domain

import (
	"maps"
	"slices"
	"sort"
)

// MaxReplans bounds how many times a single step may be sent back to the Planner.
const MaxReplans = 3

// Message authors that are not workers.
const (
	AuthorUser        = "user"
	AuthorInitialPlan = "initial_plan"
	AuthorReplan      = "replan"
	AuthorExecutor    = "executor"
)

// Message is one tagged entry of the append-only run log.
type Message struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// StepSpec assigns one planned unit of work to exactly one worker.
type StepSpec struct {
	Worker WorkerID `json:"agent"`
	Action string   `json:"action"`
}

// Plan maps a 1-based step index to its specification.
// It serializes as a JSON object keyed by the decimal step index.
type Plan map[int]StepSpec

// Step returns the spec at index i.
func (p Plan) Step(i int) (StepSpec, bool) {
	s, ok := p[i]
	return s, ok
}

// Contiguous reports whether the keys form the range 1..len(p).
func (p Plan) Contiguous() bool {
	for i := 1; i <= len(p); i++ {
		if _, ok := p[i]; !ok {
			return false
		}
	}
	return true
}

// Steps returns the specs ordered by index.
func (p Plan) Steps() []StepSpec {
	keys := make([]int, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]StepSpec, 0, len(keys))
	for _, k := range keys {
		out = append(out, p[k])
	}
	return out
}

// Clone returns an independent copy.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// ChartArtifact locates a rendered chart and its one-sentence insight.
type ChartArtifact struct {
	Path  string `json:"path"`
	Notes string `json:"notes,omitempty"`
}

// State represents the shared record of a single run.
// Nodes never modify a State; they return a Delta that Apply merges into a new one.
type State struct {
	// RunID correlates logs, events and the archived transcript.
	RunID string `json:"run_id"`

	// Messages is append-only: it never shrinks or reorders.
	Messages []Message `json:"messages"`

	// UserQuery is the original request, set once.
	UserQuery string `json:"user_query"`

	// Plan is replaced wholesale by the Planner.
	Plan Plan `json:"plan,omitempty"`

	// CurrentStep points into Plan. It starts at 1 and never decreases.
	CurrentStep int `json:"current_step"`

	// AgentQuery is the instruction for whichever worker runs next.
	AgentQuery string `json:"agent_query,omitempty"`

	// LastReason explains the most recent decision and feeds the next replan.
	LastReason string `json:"last_reason,omitempty"`

	// ReplanFlag means the plan was just revised for CurrentStep and the
	// assigned worker gets one attempt before the step is judged again.
	ReplanFlag bool `json:"replan_flag"`

	// ReplanAttempts counts replans per step. Entries never decrease.
	ReplanAttempts map[int]int `json:"replan_attempts,omitempty"`

	// EnabledAgents restricts which workers may be planned or dispatched.
	EnabledAgents []WorkerID `json:"enabled_agents"`

	// FinalAnswer is set by a terminal worker; Finished marks that it was set.
	FinalAnswer string `json:"final_answer,omitempty"`
	Finished    bool   `json:"finished"`

	// Chart is set by the chart worker.
	Chart *ChartArtifact `json:"chart,omitempty"`
}

// NewState creates the initial state of a run.
func NewState(runID, query string, enabled []WorkerID) *State {
	return &State{
		RunID:          runID,
		Messages:       []Message{{Author: AuthorUser, Content: query}},
		UserQuery:      query,
		CurrentStep:    1,
		ReplanAttempts: make(map[int]int),
		EnabledAgents:  slices.Clone(enabled),
	}
}

// Attempts returns the replan count for step, defaulting to zero.
func (s *State) Attempts(step int) int {
	return s.ReplanAttempts[step]
}

// IsEnabled reports whether w may be named in this run.
func (s *State) IsEnabled(w WorkerID) bool {
	return slices.Contains(s.EnabledAgents, w)
}

// CurrentSpec returns the plan entry CurrentStep points at.
func (s *State) CurrentSpec() (StepSpec, bool) {
	return s.Plan.Step(s.CurrentStep)
}

// RecentMessages returns a copy of the last n messages.
func (s *State) RecentMessages(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return slices.Clone(s.Messages)
	}
	return slices.Clone(s.Messages[len(s.Messages)-n:])
}

// Clone returns a deep copy safe for independent mutation.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Messages = slices.Clone(s.Messages)
	next.Plan = s.Plan.Clone()
	next.ReplanAttempts = maps.Clone(s.ReplanAttempts)
	if next.ReplanAttempts == nil {
		next.ReplanAttempts = make(map[int]int)
	}
	next.EnabledAgents = slices.Clone(s.EnabledAgents)
	if s.Chart != nil {
		c := *s.Chart
		next.Chart = &c
	}
	return &next
}
