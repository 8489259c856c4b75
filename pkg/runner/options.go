package runner

import (
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxTransitions bounds how many nodes a run may execute.
func WithMaxTransitions(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxTransitions = n
		}
	}
}

// WithObserver registers a callback for every committed transition.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}
