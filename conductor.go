package conductor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/conductor/internal/runtime"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/runner"
	"github.com/google/uuid"
)

// Engine is the high-level entry point for the Conductor library.
// It wires the plan/execute/replan runtime to a runner loop and an optional
// transcript archive, and exposes a single Run call per user request.
type Engine struct {
	runtime *runtime.Engine
	runner  *runner.Runner
	catalog *catalog.Catalog
	store   ports.TranscriptStore

	runtimeOpts  []runtime.EngineOption
	runnerOpts   []runner.Option
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	maxQuerySize int
	newID        func() string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCatalog replaces the built-in worker catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithTranscriptStore archives every run, finished or failed.
func WithTranscriptStore(store ports.TranscriptStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMaxReplans sets the per-step replan cap.
func WithMaxReplans(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxReplans(n))
	}
}

// WithCallTimeout bounds each plan, decision and worker call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithCallTimeout(d))
	}
}

// WithWorkerErrorsAsMessages controls whether worker failures abort the run.
func WithWorkerErrorsAsMessages(enabled bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithWorkerErrorsAsMessages(enabled))
	}
}

// WithMaxTransitions bounds how many nodes a single run may execute.
func WithMaxTransitions(n int) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, runner.WithMaxTransitions(n))
	}
}

// WithObserver is notified after every committed transition of every run.
func WithObserver(o runner.Observer) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, runner.WithObserver(o))
	}
}

// WithMaxQuerySize bounds the size of a user request in bytes.
func WithMaxQuerySize(n int) Option {
	return func(e *Engine) {
		e.maxQuerySize = n
	}
}

// WithIDGenerator overrides how run ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New initializes an Engine over the given capabilities.
// workers may omit ids that no run will enable; dispatching to a missing
// worker aborts that run.
func New(planner ports.PlanGenerator, oracle ports.DecisionOracle, workers map[domain.WorkerID]ports.Worker, opts ...Option) (*Engine, error) {
	if planner == nil {
		return nil, errors.New("conductor: plan generator is required")
	}
	if oracle == nil {
		return nil, errors.New("conductor: decision oracle is required")
	}

	eng := &Engine{newID: uuid.NewString}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.catalog == nil {
		eng.catalog = catalog.Default()
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(eng.catalog, planner, oracle, workers, runtimeOpts...)

	runnerOpts := []runner.Option{runner.WithLogger(eng.logger)}
	runnerOpts = append(runnerOpts, eng.runnerOpts...)
	eng.runner = runner.NewRunner(eng.runtime, runnerOpts...)

	return eng, nil
}

// Request is one user request.
type Request struct {
	Query string

	// EnabledAgents restricts the workers the run may plan or dispatch.
	// Empty enables every worker in the catalog.
	EnabledAgents []domain.WorkerID

	// RunID names the run. Empty mints a fresh id.
	RunID string
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Answer string
	Chart  *domain.ChartArtifact
	State  *domain.State
}

// Run executes one request to completion.
// On a fatal error the Result still carries the last committed state and
// the run is archived with its error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	query, err := runner.SanitizeQuery(req.Query, e.maxQuerySize)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	enabled, err := e.resolveEnabled(req.EnabledAgents)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = e.newID()
	}

	logger := e.logger.With("run_id", runID)
	logger.Info("run started", "enabled", enabled)

	started := time.Now()
	final, runErr := e.runner.Run(ctx, domain.NewState(runID, query, enabled), domain.TargetPlanner)
	finished := time.Now()

	if runErr != nil {
		logger.Error("run failed", "err", runErr, "duration", finished.Sub(started))
	} else {
		logger.Info("run completed", "duration", finished.Sub(started), "steps", len(final.Plan))
	}

	if e.store != nil {
		// Archive even when the caller has gone away.
		if err := e.store.Save(context.WithoutCancel(ctx), domain.NewTranscript(final, runErr, started, finished)); err != nil {
			logger.Warn("failed to archive transcript", "err", err)
		}
	}

	res := &Result{
		RunID:  runID,
		Answer: domain.PickFinalAnswer(final),
		State:  final,
	}
	if c, ok := domain.ChartOf(final); ok {
		res.Chart = c
	}
	if runErr != nil {
		res.Answer = ""
		return res, runErr
	}
	return res, nil
}

// Catalog returns the worker catalog in use.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Transcripts returns the transcript archive, or nil when runs are not archived.
func (e *Engine) Transcripts() ports.TranscriptStore {
	return e.store
}

func (e *Engine) resolveEnabled(ids []domain.WorkerID) ([]domain.WorkerID, error) {
	if len(ids) == 0 {
		return e.catalog.IDs(), nil
	}
	for _, id := range ids {
		if !id.Valid() {
			return nil, fmt.Errorf("enabled agents: %w: %q", domain.ErrUnknownWorker, id)
		}
		if !e.catalog.Has(id) {
			return nil, fmt.Errorf("enabled agents: %s is not in the catalog", id)
		}
	}
	return ids, nil
}
