/*
Package domain contains the core models of the conductor control loop.

It defines the shared run state, the plan a Planner produces, the closed set of
worker identities and the deltas that every node returns. This package is kept
pure and free of I/O, following Hexagonal Architecture principles: adapters and
the runtime depend on it, never the other way around.

# Key Entities

  - State: the record threaded through every node of a run (messages, plan, step pointer, replan bookkeeping).
  - Delta: the partial update a node returns; Apply merges it into a new State and enforces the run invariants.
  - Plan / StepSpec: the 1-based step decomposition owned by the Planner.
  - WorkerID: the closed enumeration of worker capabilities.
  - Target: the routing decision returned alongside each Delta.
  - Transcript: the archived record of a finished run.
*/
package domain
