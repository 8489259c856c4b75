package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/conductor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "conductor version "+conductor.Version+"\n", out)
}

func TestCatalog(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\n")

	out, err := execute(t, "catalog", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "synthesizer")
	assert.Contains(t, out, "must be the last step")
}

func TestAskJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := req.Messages[0].Content

		reply := "Forty-two."
		switch {
		case strings.Contains(prompt, "You are the **planner**"):
			reply = `{"1": {"agent": "synthesizer", "action": "answer"}}`
		case strings.Contains(prompt, "You are the **executor**"):
			reply = `{"replan": false, "goto": "synthesizer", "reason": "ok", "query": "answer"}`
		}
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	cfg := writeConfig(t, fmt.Sprintf(`
log:
  level: error
llm:
  api_key: sk-test
  base_url: %s
workers:
  chart_dir: %s
metrics:
  enabled: false
`, srv.URL, t.TempDir()))

	out, err := execute(t, "ask", "--config", cfg, "--json", "what", "is", "it?")
	require.NoError(t, err)

	var got askOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "Forty-two.", got.Answer)
	assert.NotEmpty(t, got.RunID)
	assert.Empty(t, got.Error)
}

func TestAsk_RejectsUnknownAgent(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\nllm:\n  api_key: sk-test\n")
	_, err := execute(t, "ask", "--config", cfg, "--agents", "nobody", "hello")
	assert.ErrorContains(t, err, "unknown worker")
}
