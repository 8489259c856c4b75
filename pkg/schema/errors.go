package schema

import "fmt"

// ValidationError reports a payload that is not valid JSON or does not
// conform to its schema.
type ValidationError struct {
	Payload string // Schema name, e.g. "plan.json"
	Version string
	Reason  string
	Cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s/%s: %s: %v", e.Version, e.Payload, e.Reason, e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
