/*
Package runner implements the execution loop that drives a run to completion.

The engine is a pure step function: given a state and the node to run, it
returns a delta and the next node. The runner owns everything around that:
merging deltas through domain.Apply, checking for cancellation at every node
boundary, and enforcing the transition budget.

# Key Components

  - Runner: the loop. It stops at the end target, on a finished state, on
    context cancellation, or when the transition budget is spent.
  - SignalManager: binds a run's context to SIGINT/SIGTERM for CLI use.
  - SanitizeQuery: boundary cleaning of user requests.

# Usage

	r := runner.NewRunner(engine,
		runner.WithLogger(logger),
		runner.WithMaxTransitions(50),
	)

	final, err := r.Run(ctx, domain.NewState(id, query, enabled), domain.TargetPlanner)
*/
package runner
