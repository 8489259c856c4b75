/*
Package ports defines the driven ports (interfaces) of the conductor control loop.

These interfaces decouple the Planner, Executor and worker dispatch from the
language models, search backends, databases and stores behind them, so the
core can be exercised with scripted fakes and run against real adapters in
production.

# Key Interfaces

  - PlanGenerator: turns a goal and a worker catalog into a step plan.
  - DecisionOracle: judges the current step and picks the next worker.
  - Worker: one external capability (query, chart, caption, research, synthesis).
  - TranscriptStore: archives finished runs for inspection.
  - DistributedLocker: serializes work that shares a key across replicas.
*/
package ports
