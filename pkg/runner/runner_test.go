package runner_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/conductor/internal/runtime"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The signal watcher started by SignalManager lives for the whole process.
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("os/signal.loop"))
}

// script replays oracle decisions in order and fails the run when exhausted.
type script struct {
	decisions []ports.Decision
	requests  []ports.DecisionRequest
}

func (s *script) Decide(_ context.Context, req ports.DecisionRequest) (ports.Decision, error) {
	s.requests = append(s.requests, req)
	if len(s.decisions) == 0 {
		return ports.Decision{}, errors.New("script exhausted")
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func fixedPlans(plans ...domain.Plan) ports.PlanGeneratorFunc {
	n := 0
	return func(context.Context, ports.PlanRequest) (ports.PlanResponse, error) {
		p := plans[min(n, len(plans)-1)]
		n++
		return ports.PlanResponse{Plan: p}, nil
	}
}

func echoWorkers() map[domain.WorkerID]ports.Worker {
	workers := make(map[domain.WorkerID]ports.Worker)
	for _, id := range domain.Workers() {
		workers[id] = ports.WorkerFunc(func(_ context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
			res := ports.WorkerResult{Messages: []domain.Message{{Content: fmt.Sprintf("%s did %q", req.Worker, req.Instruction)}}}
			switch req.Worker {
			case domain.WorkerChart:
				res.Chart = &domain.ChartArtifact{Path: "charts/out.svg", Notes: "revenue peaks in May"}
			case domain.WorkerCaption, domain.WorkerSynthesizer:
				res.Answer = "answer from " + string(req.Worker)
			}
			return res, nil
		})
	}
	return workers
}

func to(w domain.WorkerID) ports.Decision {
	return ports.Decision{Goto: domain.WorkerTarget(w), Query: "do " + string(w)}
}

var replan = ports.Decision{Replan: true, Goto: domain.TargetPlanner, Reason: "no data"}

func twoStep() domain.Plan {
	return domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch X"},
		2: {Worker: domain.WorkerSynthesizer, Action: "summarize"},
	}
}

func newEngine(gen ports.PlanGenerator, oracle ports.DecisionOracle, opts ...runtime.EngineOption) *runtime.Engine {
	return runtime.NewEngine(catalog.Default(), gen, oracle, echoWorkers(), opts...)
}

func run(t *testing.T, engine *runtime.Engine, opts ...runner.Option) (*domain.State, []runner.Transition, error) {
	t.Helper()
	var trail []runner.Transition
	opts = append(opts, runner.WithObserver(func(tr runner.Transition) { trail = append(trail, tr) }))
	r := runner.NewRunner(engine, opts...)
	final, err := r.Run(context.Background(), domain.NewState("run-1", "what is X?", domain.Workers()), domain.TargetPlanner)
	return final, trail, err
}

func path(trail []runner.Transition) []domain.Target {
	out := make([]domain.Target, 0, len(trail))
	for _, tr := range trail {
		out = append(out, tr.To)
	}
	return out
}

func TestRun_NormalProgress(t *testing.T) {
	oracle := &script{decisions: []ports.Decision{to(domain.WorkerQuery), to(domain.WorkerSynthesizer)}}

	final, trail, err := run(t, newEngine(fixedPlans(twoStep()), oracle))
	require.NoError(t, err)

	assert.True(t, final.Finished)
	assert.Equal(t, "answer from synthesizer", final.FinalAnswer)
	assert.Equal(t, 3, final.CurrentStep)
	assert.Equal(t, []domain.Target{
		domain.TargetExecutor, "text2sql_agent",
		domain.TargetExecutor, "synthesizer",
		domain.TargetEnd,
	}, path(trail))

	// Step 1 was dispatched with the oracle's instruction.
	assert.Equal(t, "do text2sql_agent", trail[1].State.AgentQuery)
	assert.Equal(t, 2, trail[1].State.CurrentStep)
}

func TestRun_ReplanThenShortcut(t *testing.T) {
	revised := domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch X"},
		2: {Worker: domain.WorkerResearch, Action: "search the web for X"},
		3: {Worker: domain.WorkerSynthesizer, Action: "summarize"},
	}
	oracle := &script{decisions: []ports.Decision{
		to(domain.WorkerQuery),
		replan,
		to(domain.WorkerSynthesizer),
	}}

	final, trail, err := run(t, newEngine(fixedPlans(twoStep(), revised), oracle))
	require.NoError(t, err)

	assert.Equal(t, []domain.Target{
		domain.TargetExecutor, "text2sql_agent",
		domain.TargetExecutor, domain.TargetPlanner,
		domain.TargetExecutor, "web_researcher",
		domain.TargetExecutor, "synthesizer",
		domain.TargetEnd,
	}, path(trail))

	// The query worker ran, so step 2 was being judged when the replan arrived.
	assert.Equal(t, 1, final.Attempts(2))
	assert.Equal(t, revised, final.Plan)

	// The shortcut dispatched the revised action without asking the oracle.
	assert.Len(t, oracle.requests, 3)
	assert.Equal(t, "search the web for X", trail[5].State.AgentQuery)
	assert.True(t, oracle.requests[2].JustReplanned)
}

func TestRun_ExhaustedReplansForceProgress(t *testing.T) {
	plan := domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch X"},
		2: {Worker: domain.WorkerResearch, Action: "search X"},
		3: {Worker: domain.WorkerSynthesizer, Action: "summarize"},
	}
	oracle := &script{decisions: []ports.Decision{replan, replan}}

	final, trail, err := run(t, newEngine(fixedPlans(plan), oracle, runtime.WithMaxReplans(0)))
	require.NoError(t, err)

	// Refused replans move on to the next planned worker without revising.
	assert.Equal(t, []domain.Target{
		domain.TargetExecutor,
		"web_researcher", domain.TargetExecutor,
		"synthesizer", domain.TargetEnd,
	}, path(trail))
	assert.True(t, final.Finished)
	assert.Empty(t, final.ReplanAttempts)
}

// randomOracle mixes replans, planned dispatches and off-plan detours.
type randomOracle struct {
	rng   *rand.Rand
	calls int
}

func (o *randomOracle) Decide(_ context.Context, req ports.DecisionRequest) (ports.Decision, error) {
	o.calls++
	switch o.rng.IntN(3) {
	case 0:
		return replan, nil
	case 1:
		if req.HasSpec {
			return to(req.Spec.Worker), nil
		}
		return to(domain.WorkerSynthesizer), nil
	default:
		return to(domain.WorkerQuery), nil
	}
}

func TestRun_InvariantsHoldForArbitraryDecisions(t *testing.T) {
	plan := domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch X"},
		2: {Worker: domain.WorkerResearch, Action: "search X"},
		3: {Worker: domain.WorkerSynthesizer, Action: "summarize"},
	}

	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			oracle := &randomOracle{rng: rand.New(rand.NewPCG(seed, 0))}
			prev := domain.NewState("run-1", "what is X?", domain.Workers())
			callsBefore := 0

			observe := func(tr runner.Transition) {
				assert.GreaterOrEqual(t, tr.State.CurrentStep, prev.CurrentStep, "step pointer moved back")
				for step, n := range tr.State.ReplanAttempts {
					assert.LessOrEqual(t, n, domain.MaxReplans, "step %d", step)
				}
				if tr.From == domain.TargetExecutor && prev.ReplanFlag {
					assert.Equal(t, callsBefore, oracle.calls, "oracle consulted right after a replan")
					spec, _ := prev.Plan.Step(prev.CurrentStep)
					assert.Equal(t, domain.WorkerTarget(spec.Worker), tr.To)
				}
				assert.GreaterOrEqual(t, len(tr.State.Messages), len(prev.Messages))
				prev, callsBefore = tr.State, oracle.calls
			}

			final, err := runner.NewRunner(newEngine(fixedPlans(plan), oracle), runner.WithMaxTransitions(60), runner.WithObserver(observe)).
				Run(context.Background(), prev, domain.TargetPlanner)
			if err != nil {
				require.ErrorIs(t, err, domain.ErrTransitionLimit)
				return
			}
			assert.True(t, final.Finished)
		})
	}
}

func TestRun_ChartPath(t *testing.T) {
	plan := domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch revenue"},
		2: {Worker: domain.WorkerChart, Action: "plot revenue"},
		3: {Worker: domain.WorkerCaption, Action: "caption"},
	}
	oracle := &script{decisions: []ports.Decision{
		to(domain.WorkerQuery),
		to(domain.WorkerChart),
	}}

	final, trail, err := run(t, newEngine(fixedPlans(plan), oracle))
	require.NoError(t, err)

	assert.Equal(t, "answer from chart_summarizer", final.FinalAnswer)
	require.NotNil(t, final.Chart)
	assert.Equal(t, "charts/out.svg", final.Chart.Path)

	// After the chart worker the next worker is the caption.
	var afterChart []domain.Target
	for i, tr := range trail {
		if tr.From == "chart_generator" {
			afterChart = path(trail[i+1:])
		}
	}
	require.GreaterOrEqual(t, len(afterChart), 1)
	assert.Equal(t, domain.Target("chart_summarizer"), afterChart[0])

	c, ok := domain.ExtractChart(final.Messages)
	require.True(t, ok)
	assert.Equal(t, "charts/out.svg", c.Path)
	assert.Equal(t, "revenue peaks in May", c.Notes)
}

func TestRun_ChartAlwaysHandsOffToCaption(t *testing.T) {
	plan := domain.Plan{
		1: {Worker: domain.WorkerQuery, Action: "fetch revenue"},
		2: {Worker: domain.WorkerChart, Action: "plot revenue"},
		3: {Worker: domain.WorkerCaption, Action: "caption the plot"},
	}
	tests := []struct {
		name       string
		afterChart ports.Decision
	}{
		{"oracle would replan", replan},
		{"oracle would synthesize", to(domain.WorkerSynthesizer)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &script{decisions: []ports.Decision{
				to(domain.WorkerQuery),
				to(domain.WorkerChart),
				tt.afterChart,
			}}

			final, trail, err := run(t, newEngine(fixedPlans(plan), oracle))
			require.NoError(t, err)

			assert.Equal(t, []domain.Target{
				domain.TargetExecutor, "text2sql_agent",
				domain.TargetExecutor, "chart_generator",
				"chart_summarizer", domain.TargetEnd,
			}, path(trail))
			assert.Equal(t, "answer from chart_summarizer", final.FinalAnswer)
			assert.Equal(t, 4, final.CurrentStep)
			assert.Len(t, oracle.requests, 2, "the oracle is not consulted after the chart")
			assert.Len(t, oracle.decisions, 1)

			caption := trail[len(trail)-2]
			assert.Equal(t, "caption the plot", caption.State.AgentQuery)
		})
	}
}

func TestRun_DecisionErrorCommitsNothing(t *testing.T) {
	oracle := ports.DecisionOracleFunc(func(context.Context, ports.DecisionRequest) (ports.Decision, error) {
		return ports.Decision{}, errors.New("unparseable reply")
	})

	final, trail, err := run(t, newEngine(fixedPlans(twoStep()), oracle))

	var ede *domain.ExecutorDecisionError
	require.ErrorAs(t, err, &ede)
	require.Len(t, trail, 1, "only the planner committed")
	assert.Same(t, trail[0].State, final)
	assert.False(t, final.Finished)
	assert.Empty(t, final.FinalAnswer)
}

func TestRun_TransitionLimit(t *testing.T) {
	// The oracle keeps detouring to an off-plan worker.
	oracle := ports.DecisionOracleFunc(func(context.Context, ports.DecisionRequest) (ports.Decision, error) {
		return to(domain.WorkerResearch), nil
	})

	final, trail, err := run(t, newEngine(fixedPlans(twoStep()), oracle), runner.WithMaxTransitions(9))

	assert.ErrorIs(t, err, domain.ErrTransitionLimit)
	assert.Len(t, trail, 9)
	assert.Equal(t, 1, final.CurrentStep)
}

func TestRun_CanceledBeforeFirstNode(t *testing.T) {
	called := false
	gen := ports.PlanGeneratorFunc(func(context.Context, ports.PlanRequest) (ports.PlanResponse, error) {
		called = true
		return ports.PlanResponse{Plan: twoStep()}, nil
	})
	engine := runtime.NewEngine(catalog.Default(), gen, &script{}, echoWorkers())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	initial := domain.NewState("run-1", "q", domain.Workers())
	final, err := runner.NewRunner(engine).Run(ctx, initial, domain.TargetPlanner)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Same(t, initial, final)
}

func TestRun_FinishedStateIsAbsorbing(t *testing.T) {
	s := domain.NewState("run-1", "q", domain.Workers())
	s.FinalAnswer, s.Finished = "done", true

	engine := runtime.NewEngine(catalog.Default(), fixedPlans(twoStep()), &script{}, echoWorkers())
	final, err := runner.NewRunner(engine).Run(context.Background(), s, domain.TargetExecutor)

	require.NoError(t, err)
	assert.Same(t, s, final)
}
