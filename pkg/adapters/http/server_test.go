package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aretw0/conductor"
	httpadapter "github.com/aretw0/conductor/pkg/adapters/http"
	"github.com/aretw0/conductor/pkg/adapters/memory"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler  http.Handler
	store    *memory.Store
	runs     atomic.Int32
	planFail atomic.Bool
}

func newFixture(t *testing.T, opts ...httpadapter.Option) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore()}

	planner := ports.PlanGeneratorFunc(func(ctx context.Context, req ports.PlanRequest) (ports.PlanResponse, error) {
		f.runs.Add(1)
		if f.planFail.Load() {
			return ports.PlanResponse{Raw: "not json"}, errors.New("model returned prose")
		}
		return ports.PlanResponse{Plan: domain.Plan{
			1: {Worker: domain.WorkerSynthesizer, Action: "answer briefly"},
		}}, nil
	})
	oracle := ports.DecisionOracleFunc(func(ctx context.Context, req ports.DecisionRequest) (ports.Decision, error) {
		return ports.Decision{Goto: domain.WorkerTarget(req.Spec.Worker), Query: req.Spec.Action}, nil
	})
	workers := map[domain.WorkerID]ports.Worker{
		domain.WorkerSynthesizer: ports.WorkerFunc(func(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
			return ports.WorkerResult{Answer: "42"}, nil
		}),
	}

	eng, err := conductor.New(planner, oracle, workers, conductor.WithTranscriptStore(f.store))
	require.NoError(t, err)

	opts = append([]httpadapter.Option{httpadapter.WithSessions(session.NewManager(f.store))}, opts...)
	f.handler = httpadapter.NewServer(eng, opts...).Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&v), w.Body.String())
	return v
}

func TestCreateRun(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/runs", `{"query":"what is the answer?"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	res := decode[httpadapter.RunResponse](t, w)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "42", res.Answer)
	assert.Equal(t, domain.WorkerSynthesizer, res.Plan[1].Worker)
	assert.False(t, res.Replayed)

	w = f.do(t, http.MethodGet, "/v1/runs/"+res.RunID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tr := decode[domain.Transcript](t, w)
	assert.Equal(t, "what is the answer?", tr.UserQuery)
	assert.True(t, tr.Finished)

	w = f.do(t, http.MethodGet, "/v1/runs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{res.RunID}, decode[map[string][]string](t, w)["runs"])
}

func TestCreateRun_BadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"query":`},
		{"unknown field", `{"query":"x","mode":"fast"}`},
		{"empty query", `{"query":"   "}`},
		{"unknown agent", `{"query":"x","enabled_agents":["oracle"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/v1/runs", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[httpadapter.ErrorResponse](t, w).Error)
		})
	}
	assert.Zero(t, f.runs.Load())
}

func TestCreateRun_PlanFailureIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	f.planFail.Store(true)

	w := f.do(t, http.MethodPost, "/v1/runs", `{"query":"x"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[httpadapter.ErrorResponse](t, w)
	assert.NotEmpty(t, body.RunID)

	// The failed run is still archived.
	w = f.do(t, http.MethodGet, "/v1/runs/"+body.RunID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[domain.Transcript](t, w).Error)
}

func TestCreateRun_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	hdr := map[string]string{httpadapter.IdempotencyHeader: "req-7"}

	first := f.do(t, http.MethodPost, "/v1/runs", `{"query":"x"}`, hdr)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	r1 := decode[httpadapter.RunResponse](t, first)
	assert.Equal(t, "req-7", r1.RunID)
	assert.False(t, r1.Replayed)

	second := f.do(t, http.MethodPost, "/v1/runs", `{"query":"x"}`, hdr)
	require.Equal(t, http.StatusOK, second.Code)
	r2 := decode[httpadapter.RunResponse](t, second)
	assert.True(t, r2.Replayed)
	assert.Equal(t, r1.Answer, r2.Answer)

	assert.Equal(t, int32(1), f.runs.Load())
}

func TestCreateRun_IdempotentFailureReplaysAsConflict(t *testing.T) {
	f := newFixture(t)
	f.planFail.Store(true)
	hdr := map[string]string{httpadapter.IdempotencyHeader: "req-9"}

	w := f.do(t, http.MethodPost, "/v1/runs", `{"query":"x"}`, hdr)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPost, "/v1/runs", `{"query":"x"}`, hdr)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(1), f.runs.Load())
}

func TestGetRun_NotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/runs/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogAndHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]map[string]any](t, w)
	assert.Len(t, entries, len(domain.Workers()))

	w = f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "metrics are opt-in")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	f := newFixture(t, httpadapter.WithMetrics(m, reg))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/runs", `{"query":"x"}`, nil).Code)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `conductor_runs_total{outcome="finished"} 1`)
}
