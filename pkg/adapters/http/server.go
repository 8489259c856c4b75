// Package http exposes the engine over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/runner"
	"github.com/aretw0/conductor/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IdempotencyHeader names the header that makes POST /v1/runs replayable.
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Engine is the part of conductor.Engine the server needs.
type Engine interface {
	Run(ctx context.Context, req conductor.Request) (*conductor.Result, error)
	Catalog() *catalog.Catalog
	Transcripts() ports.TranscriptStore
}

var _ Engine = (*conductor.Engine)(nil)

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Query         string   `json:"query"`
	EnabledAgents []string `json:"enabled_agents,omitempty"`
}

// RunResponse describes a finished run.
type RunResponse struct {
	RunID    string                `json:"run_id"`
	Answer   string                `json:"answer"`
	Chart    *domain.ChartArtifact `json:"chart,omitempty"`
	Plan     domain.Plan           `json:"plan"`
	Messages []domain.Message      `json:"messages"`
	Replayed bool                  `json:"replayed,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

// Server serves the run API.
type Server struct {
	engine   Engine
	sessions *session.Manager
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSessions enables the Idempotency-Key header. The manager's store must
// be the one the engine archives into.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithMetrics records run outcomes in m and serves g on /metrics.
func WithMetrics(m *observability.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a Server over engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", s.listCatalog)
		r.Post("/runs", s.createRun)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": conductor.Version})
}

func (s *Server) listCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Catalog().Entries())
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), "")
		return
	}
	enabled, err := domain.ParseWorkerIDs(body.EnabledAgents)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, "")
		return
	}
	req := conductor.Request{Query: body.Query, EnabledAgents: enabled}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" || s.sessions == nil {
		res, err := s.run(r.Context(), req)
		if err != nil {
			runID := ""
			if res != nil {
				runID = res.RunID
			}
			writeError(w, statusFor(err), err, runID)
			return
		}
		writeJSON(w, http.StatusOK, RunResponse{
			RunID:    res.RunID,
			Answer:   res.Answer,
			Chart:    res.Chart,
			Plan:     res.State.Plan,
			Messages: res.State.Messages,
		})
		return
	}

	req.RunID = key
	var runErr error
	t, replayed, err := s.sessions.Replay(r.Context(), key, func(ctx context.Context) error {
		res, err := s.run(ctx, req)
		if res == nil {
			// Rejected before the run started, so nothing was archived.
			return err
		}
		runErr = err
		return nil
	})
	if err != nil {
		writeError(w, statusFor(err), err, key)
		return
	}
	if runErr != nil {
		writeError(w, statusFor(runErr), runErr, key)
		return
	}
	if t.Error != "" {
		writeError(w, http.StatusConflict, fmt.Errorf("run %s failed: %s", key, t.Error), key)
		return
	}
	s.logger.Info("run served", "run_id", key, "replayed", replayed)
	writeJSON(w, http.StatusOK, transcriptResponse(t, replayed))
}

func (s *Server) run(ctx context.Context, req conductor.Request) (*conductor.Result, error) {
	start := time.Now()
	res, err := s.engine.Run(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveRun(time.Since(start).Seconds(), err)
	}
	return res, err
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	store := s.engine.Transcripts()
	if store == nil {
		writeError(w, http.StatusNotFound, errors.New("runs are not archived"), "")
		return
	}
	ids, err := store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err, "")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store := s.engine.Transcripts()
	if store == nil {
		writeError(w, http.StatusNotFound, errors.New("runs are not archived"), id)
		return
	}
	t, err := store.Load(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err, id)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func transcriptResponse(t *domain.Transcript, replayed bool) RunResponse {
	return RunResponse{
		RunID:    t.RunID,
		Answer:   t.Answer,
		Chart:    t.Chart,
		Plan:     t.Plan,
		Messages: t.Messages,
		Replayed: replayed,
	}
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	var (
		planErr     *domain.PlanGenerationError
		decisionErr *domain.ExecutorDecisionError
		maxBytes    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrUnknownWorker),
		errors.Is(err, runner.ErrQueryTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8),
		errors.As(err, &maxBytes):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.As(err, &planErr), errors.As(err, &decisionErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error, runID string) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), RunID: runID})
}

// Serve runs h on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		logger.Info("shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}
