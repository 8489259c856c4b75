package domain

import "fmt"

// Delta is the partial update a node returns.
// Nil pointer fields leave the corresponding State field unchanged.
type Delta struct {
	// Messages are appended in order.
	Messages []Message `json:"messages,omitempty"`

	// Plan, when non-nil, replaces the current plan.
	Plan Plan `json:"plan,omitempty"`

	CurrentStep *int    `json:"current_step,omitempty"`
	AgentQuery  *string `json:"agent_query,omitempty"`
	LastReason  *string `json:"last_reason,omitempty"`
	ReplanFlag  *bool   `json:"replan_flag,omitempty"`

	// ReplanAttempts overwrites the listed steps only.
	ReplanAttempts map[int]int `json:"replan_attempts,omitempty"`

	// FinalAnswer finishes the run.
	FinalAnswer *string `json:"final_answer,omitempty"`

	Chart *ChartArtifact `json:"chart,omitempty"`
}

// Ptr returns a pointer to v. It keeps Delta literals short.
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether applying d would change nothing.
func (d Delta) IsEmpty() bool {
	return len(d.Messages) == 0 &&
		d.Plan == nil &&
		d.CurrentStep == nil &&
		d.AgentQuery == nil &&
		d.LastReason == nil &&
		d.ReplanFlag == nil &&
		len(d.ReplanAttempts) == 0 &&
		d.FinalAnswer == nil &&
		d.Chart == nil
}

// Apply merges d into a copy of s and returns the copy. s is never modified.
// It rejects deltas that would break the run invariants: no transitions after
// the final answer, a non-decreasing step pointer and replan counters, and a
// contiguous plan.
func Apply(s *State, d Delta) (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("apply delta: nil state")
	}
	if s.Finished && !d.IsEmpty() {
		return nil, ErrRunFinished
	}
	if d.CurrentStep != nil && *d.CurrentStep < s.CurrentStep {
		return nil, fmt.Errorf("%w: %d -> %d", ErrStepRegression, s.CurrentStep, *d.CurrentStep)
	}
	for step, n := range d.ReplanAttempts {
		if n < s.ReplanAttempts[step] {
			return nil, fmt.Errorf("%w: step %d %d -> %d", ErrAttemptsRegression, step, s.ReplanAttempts[step], n)
		}
	}
	if d.Plan != nil && (len(d.Plan) == 0 || !d.Plan.Contiguous()) {
		return nil, fmt.Errorf("%w: steps must be numbered 1..n", ErrInvalidPlan)
	}

	next := s.Clone()
	next.Messages = append(next.Messages, d.Messages...)
	if d.Plan != nil {
		next.Plan = d.Plan.Clone()
	}
	if d.CurrentStep != nil {
		next.CurrentStep = *d.CurrentStep
	}
	if d.AgentQuery != nil {
		next.AgentQuery = *d.AgentQuery
	}
	if d.LastReason != nil {
		next.LastReason = *d.LastReason
	}
	if d.ReplanFlag != nil {
		next.ReplanFlag = *d.ReplanFlag
	}
	for step, n := range d.ReplanAttempts {
		next.ReplanAttempts[step] = n
	}
	if d.Chart != nil {
		c := *d.Chart
		next.Chart = &c
	}
	if d.FinalAnswer != nil {
		next.FinalAnswer = *d.FinalAnswer
		next.Finished = true
	}
	return next, nil
}
