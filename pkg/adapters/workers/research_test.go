package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/conductor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchServer(t *testing.T, results []SearchResult) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go release cadence", body["query"])

		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResearch_Execute(t *testing.T) {
	srv := searchServer(t, []SearchResult{
		{Title: "Go release policy", URL: "https://go.dev/doc/devel/release", Content: "Two major releases per year."},
		{Title: "Go blog", URL: "https://go.dev/blog", Content: "Releases every six months."},
	})
	model := newFakeModel("Go ships twice a year [1][2].")
	r := NewResearch(model, NewTavilyClient("tvly-test", srv.URL))

	res, err := r.Execute(context.Background(), ports.WorkerRequest{Instruction: "go release cadence"})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)

	assert.Equal(t, "Go ships twice a year [1][2].\n\nSources:\n[1] https://go.dev/doc/devel/release\n[2] https://go.dev/blog", res.Messages[0].Content)
	assert.Contains(t, model.lastPrompt(), "[1] Go release policy (https://go.dev/doc/devel/release)")
	assert.Contains(t, model.lastPrompt(), "[2] Go blog (https://go.dev/blog)")
}

func TestResearch_NoResults(t *testing.T) {
	srv := searchServer(t, nil)
	model := newFakeModel("unused")

	res, err := NewResearch(model, NewTavilyClient("tvly-test", srv.URL)).Execute(context.Background(), ports.WorkerRequest{UserQuery: "go release cadence"})
	require.NoError(t, err)
	assert.Equal(t, `No web results found for "go release cadence".`, res.Messages[0].Content)
	assert.Empty(t, model.prompts)
}

func TestTavilyClient_LimitsAndErrors(t *testing.T) {
	srv := searchServer(t, []SearchResult{{URL: "a"}, {URL: "b"}, {URL: "c"}})
	got, err := NewTavilyClient("tvly-test", srv.URL).Search(context.Background(), "go release cadence", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer failing.Close()

	_, err = NewTavilyClient("bad", failing.URL).Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "status 401: invalid api key")
}
