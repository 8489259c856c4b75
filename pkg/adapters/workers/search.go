package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultSearchURL is the Tavily search endpoint.
const DefaultSearchURL = "https://api.tavily.com/search"

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// TavilyClient searches through a Tavily-compatible JSON API.
type TavilyClient struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewTavilyClient creates a search client. An empty url uses DefaultSearchURL.
func NewTavilyClient(apiKey, url string) *TavilyClient {
	if url == "" {
		url = DefaultSearchURL
	}
	return &TavilyClient{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Searcher = (*TavilyClient)(nil)

// Search returns at most limit results for query.
func (c *TavilyClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	payload, err := json.Marshal(map[string]any{
		"query":       query,
		"max_results": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(out.Results) > limit {
		out.Results = out.Results[:limit]
	}
	return out.Results, nil
}
