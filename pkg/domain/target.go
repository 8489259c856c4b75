package domain

// Target names the node that runs next.
// Worker targets share their spelling with the WorkerID they dispatch to.
type Target string

const (
	TargetPlanner  Target = "planner"
	TargetExecutor Target = "executor"
	TargetEnd      Target = "__end__"
)

// WorkerTarget routes to the given worker.
func WorkerTarget(w WorkerID) Target {
	return Target(w)
}

// Worker returns the worker this target dispatches to, if any.
func (t Target) Worker() (WorkerID, bool) {
	id := WorkerID(t)
	return id, id.Valid()
}

func (t Target) String() string {
	return string(t)
}
