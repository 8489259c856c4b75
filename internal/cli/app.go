package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/internal/config"
	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/adapters/openai"
	"github.com/aretw0/conductor/pkg/adapters/workers"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/registry"
	"github.com/aretw0/conductor/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/aretw0/conductor"

// App is a fully wired engine plus the resources it owns.
type App struct {
	Engine   *conductor.Engine
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Archive  *Archive

	db *sql.DB
}

// Close releases the database and archive connections.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.Archive != nil {
		errs = append(errs, a.Archive.Close())
	}
	return errors.Join(errs...)
}

// Build wires the engine described by cfg.
// Workers whose backend is not configured are left out of the catalog, so
// plans never name them.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	model := openai.New(cfg.LLM.APIKey,
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.Model),
		openai.WithTemperature(cfg.LLM.Temperature),
		openai.WithMaxTokens(cfg.LLM.MaxTokens),
		openai.WithRateLimit(cfg.LLM.RateLimit, cfg.LLM.Burst),
		openai.WithRetries(cfg.LLM.MaxRetries, cfg.LLM.Backoff),
		openai.WithLogger(logger.With("component", "openai")),
	)

	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	registered, err := app.buildWorkers(ctx, cfg.Workers, model, logger)
	if err != nil {
		return nil, err
	}

	cat, err := LoadCatalog(cfg.Workers.CatalogFile)
	if err != nil {
		return nil, err
	}
	cat = cat.Filter(registered.IDs())
	logger.Debug("workers available", "workers", cat.IDs())

	hooks := []domain.LifecycleHooks{
		observability.LoggingHooks(logger),
		observability.NewTracing(otel.Tracer(tracerName)).Hooks(),
	}
	if cfg.Metrics.Enabled {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		app.Metrics, err = observability.NewMetrics(app.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = append(hooks, app.Metrics.Hooks())
	}

	opts := []conductor.Option{
		conductor.WithLogger(logger),
		conductor.WithCatalog(cat),
		conductor.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		conductor.WithMaxReplans(cfg.Run.MaxReplans),
		conductor.WithCallTimeout(cfg.Run.CallTimeout),
		conductor.WithMaxTransitions(cfg.Run.MaxTransitions),
		conductor.WithMaxQuerySize(cfg.Run.MaxQuerySize),
		conductor.WithWorkerErrorsAsMessages(cfg.Run.WorkerErrorsAsMessages),
	}

	app.Archive, err = OpenArchive(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if store := app.Archive.Store; store != nil {
		opts = append(opts, conductor.WithTranscriptStore(store))
		sessionOpts := []session.Option{
			session.WithLockTTL(cfg.Store.LockTTL),
			session.WithLogger(logger),
		}
		if app.Archive.Locker != nil {
			sessionOpts = append(sessionOpts, session.WithLocker(app.Archive.Locker))
		}
		app.Sessions = session.NewManager(store, sessionOpts...)
	}

	app.Engine, err = conductor.New(
		llm.NewPlanner(model, llm.WithLogger(logger)),
		llm.NewOracle(model, llm.WithLogger(logger)),
		registered.Workers(),
		opts...,
	)
	if err != nil {
		return nil, err
	}
	ok = true
	return app, nil
}

func (a *App) buildWorkers(ctx context.Context, cfg config.WorkersConfig, model llm.Completer, logger *slog.Logger) (*registry.Registry, error) {
	opts := []workers.Option{
		workers.WithLogger(logger),
		workers.WithRowLimit(cfg.RowLimit),
		workers.WithQueryAttempts(cfg.QueryAttempts),
		workers.WithSearchResults(cfg.Search.MaxResults),
	}

	reg := registry.NewRegistry()
	builtin := map[domain.WorkerID]ports.Worker{
		domain.WorkerChart:       workers.NewChart(model, cfg.ChartDir, opts...),
		domain.WorkerCaption:     workers.NewCaption(model, opts...),
		domain.WorkerSynthesizer: workers.NewSynthesizer(model),
	}
	for id, w := range builtin {
		if err := reg.Register(id, w); err != nil {
			return nil, err
		}
	}

	if cfg.Database.DSN != "" {
		db, err := workers.OpenDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := reg.Register(domain.WorkerQuery, workers.NewQuery(model, db, cfg.Database.Driver, opts...)); err != nil {
			return nil, err
		}
	} else {
		logger.Info("no database configured, query worker disabled")
	}

	if cfg.Search.APIKey != "" {
		search := workers.NewTavilyClient(cfg.Search.APIKey, cfg.Search.URL)
		if err := reg.Register(domain.WorkerResearch, workers.NewResearch(model, search, opts...)); err != nil {
			return nil, err
		}
	} else {
		logger.Info("no search API key configured, web research disabled")
	}
	return reg, nil
}

// LoadCatalog returns the catalog override at path, or the built-in one.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat, nil
}
