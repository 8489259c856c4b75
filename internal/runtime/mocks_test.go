package runtime_test

import (
	"context"

	"github.com/aretw0/conductor/internal/runtime"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/stretchr/testify/mock"
)

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) Generate(ctx context.Context, req ports.PlanRequest) (ports.PlanResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.PlanResponse), args.Error(1)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Decide(ctx context.Context, req ports.DecisionRequest) (ports.Decision, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.Decision), args.Error(1)
}

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) Execute(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.WorkerResult), args.Error(1)
}

// fixture wires an engine over the default catalog with mocked capabilities.
type fixture struct {
	planner *mockPlanner
	oracle  *mockOracle
	workers map[domain.WorkerID]*mockWorker
	engine  *runtime.Engine
}

func newFixture(opts ...runtime.EngineOption) *fixture {
	f := &fixture{
		planner: &mockPlanner{},
		oracle:  &mockOracle{},
		workers: make(map[domain.WorkerID]*mockWorker),
	}
	registered := make(map[domain.WorkerID]ports.Worker)
	for _, id := range domain.Workers() {
		w := &mockWorker{}
		f.workers[id] = w
		registered[id] = w
	}
	f.engine = runtime.NewEngine(catalog.Default(), f.planner, f.oracle, registered, opts...)
	return f
}

// chartPlan is a three step plan: query, chart, caption.
func chartPlan() domain.Plan {
	return domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch monthly revenue"},
		2: {Worker: domain.WorkerChart, Action: "plot revenue by month"},
		3: {Worker: domain.WorkerCaption, Action: "summarize the chart"},
	}
}

func planned(step int) *domain.State {
	s := domain.NewState("run-1", "chart monthly revenue", domain.Workers())
	s.Plan = chartPlan()
	s.CurrentStep = step
	return s
}
