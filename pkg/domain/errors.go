package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownWorker is returned when an identity outside the closed worker set is named.
	ErrUnknownWorker = errors.New("unknown worker")

	// ErrWorkerNotRegistered is returned when the routed worker has no capability attached.
	ErrWorkerNotRegistered = errors.New("worker not registered")

	// ErrStepOutOfPlan is returned when the step pointer names no plan entry where one is required.
	ErrStepOutOfPlan = errors.New("step not in plan")

	// ErrRunFinished is returned when a transition is attempted after the final answer.
	ErrRunFinished = errors.New("run already finished")

	// ErrStepRegression is returned when a delta would move the step pointer backwards.
	ErrStepRegression = errors.New("current step cannot decrease")

	// ErrAttemptsRegression is returned when a delta would lower a replan counter.
	ErrAttemptsRegression = errors.New("replan attempts cannot decrease")

	// ErrInvalidPlan is returned for plans that break the structural or positional policy.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrTransitionLimit is returned when a run exceeds its transition budget.
	ErrTransitionLimit = errors.New("transition limit exceeded")

	// ErrRunNotFound is returned when a transcript cannot be found in the store.
	ErrRunNotFound = errors.New("run not found")

	// ErrEmptyQuery is returned when a run is started without a request.
	ErrEmptyQuery = errors.New("empty query")
)

// PlanGenerationError is returned when the plan generator yields data that is
// malformed or violates the plan policy. It is fatal: no state is committed.
type PlanGenerationError struct {
	Reason string
	Raw    string
	Cause  error
}

func (e *PlanGenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plan generation failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("plan generation failed: %s", e.Reason)
}

func (e *PlanGenerationError) Unwrap() error {
	return e.Cause
}

// ExecutorDecisionError is returned when the decision oracle yields data that is
// malformed or names a worker the run may not use. It is fatal: no state is committed.
type ExecutorDecisionError struct {
	Step   int
	Reason string
	Raw    string
	Cause  error
}

func (e *ExecutorDecisionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("executor decision failed at step %d: %s: %v", e.Step, e.Reason, e.Cause)
	}
	return fmt.Sprintf("executor decision failed at step %d: %s", e.Step, e.Reason)
}

func (e *ExecutorDecisionError) Unwrap() error {
	return e.Cause
}

// WorkerCapabilityError wraps a failure raised inside a worker capability.
type WorkerCapabilityError struct {
	Worker WorkerID
	Cause  error
}

func (e *WorkerCapabilityError) Error() string {
	return fmt.Sprintf("worker %s failed: %v", e.Worker, e.Cause)
}

func (e *WorkerCapabilityError) Unwrap() error {
	return e.Cause
}
