// README: Optional web-search provider with a competitor blocklist.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"berline/internal/modules/chat"
)

const maxResults = 4

// httpClient guards against stalled connections; context cancellation is
// still honoured via NewRequestWithContext.
var httpClient = &http.Client{Timeout: 15 * time.Second}

// Client calls a Serper-style JSON search endpoint. Results matching the
// competitor blocklist are dropped before anyone — model or user — sees them.
type Client struct {
	endpoint  string
	apiKey    string
	blocklist []string
}

func NewClient(endpoint, apiKey string, blocklist []string) *Client {
	lowered := make([]string, 0, len(blocklist))
	for _, b := range blocklist {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			lowered = append(lowered, b)
		}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, blocklist: lowered}
}

type searchRequest struct {
	Query string `json:"q"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *Client) Search(ctx context.Context, query string) ([]chat.SearchResult, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("search: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}
	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("search: unmarshal response: %w", err)
	}

	var out []chat.SearchResult
	for _, r := range sr.Organic {
		if len(out) >= maxResults {
			break
		}
		if c.blocked(r.Title) || c.blocked(r.Link) || c.blocked(r.Snippet) {
			continue
		}
		out = append(out, chat.SearchResult{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}

func (c *Client) blocked(s string) bool {
	s = strings.ToLower(s)
	for _, b := range c.blocklist {
		if strings.Contains(s, b) {
			return true
		}
	}
	return false
}
