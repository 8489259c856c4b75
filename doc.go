/*
Package conductor coordinates a team of specialized workers to answer one user request.

A run follows a plan/execute/replan loop. A planner decomposes the request into
numbered steps, each assigned to exactly one worker. An executor then judges,
after every worker call, whether the current step is done, should be retried
through a revised plan, or needs a corrective detour. Retries are bounded per
step, so every run makes progress until a terminal worker produces the answer.

# Concept

The loop is a pure state machine. Every node (planner, executor, worker)
receives the current state and returns a delta plus the next node; the runner
merges the delta and enforces the run invariants. External capabilities sit
behind ports: the plan generator and decision oracle (usually an LLM), and one
Worker per capability (query execution, chart rendering, chart captioning, web
research, synthesis).

# Key Features

  - Bounded replans: each step may be revised at most MaxReplans times before
    the run is forced forward.
  - Post-replan shortcut: a revised step always gets one attempt before it is
    judged again.
  - Catalog-driven policy: positional rules such as "must be last" live in data
    and are validated on every plan.
  - Typed chart artifacts alongside the textual CHART_PATH/CHART_NOTES markers.
  - Observability via lifecycle hooks and an optional transcript archive.

# Usage

	eng, err := conductor.New(planner, oracle, workers,
		conductor.WithLogger(logger),
		conductor.WithTranscriptStore(memory.NewStore()),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Run(ctx, conductor.Request{Query: "Plot monthly revenue for 2024"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Answer)
*/
package conductor
