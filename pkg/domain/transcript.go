package domain

import "time"

// Transcript is the archived record of a finished run, successful or not.
// It is read back for inspection only; runs are never resumed from it.
type Transcript struct {
	RunID          string         `json:"run_id"`
	UserQuery      string         `json:"user_query"`
	EnabledAgents  []WorkerID     `json:"enabled_agents"`
	Answer         string         `json:"answer,omitempty"`
	Finished       bool           `json:"finished"`
	Chart          *ChartArtifact `json:"chart,omitempty"`
	Plan           Plan           `json:"plan,omitempty"`
	Messages       []Message      `json:"messages"`
	ReplanAttempts map[int]int    `json:"replan_attempts,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// NewTranscript captures the final state of a run and its terminal error, if any.
func NewTranscript(s *State, runErr error, startedAt, finishedAt time.Time) *Transcript {
	snap := s.Clone()
	t := &Transcript{
		RunID:          snap.RunID,
		UserQuery:      snap.UserQuery,
		EnabledAgents:  snap.EnabledAgents,
		Finished:       snap.Finished,
		Plan:           snap.Plan,
		Messages:       snap.Messages,
		ReplanAttempts: snap.ReplanAttempts,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
	}
	if snap.Finished {
		t.Answer = snap.FinalAnswer
	}
	if c, ok := ChartOf(snap); ok {
		t.Chart = c
	}
	if runErr != nil {
		t.Error = runErr.Error()
	}
	return t
}
