// Package search wraps the Brave keyword web-search API used to discover
// candidate URLs for the web RAG pipeline.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrMissingAPIKey reports an unset BRAVE_SEARCH_API_KEY. It is checked
// before any network call so the caller can render a clear message instead
// of a request failure.
var ErrMissingAPIKey = errors.New("BRAVE_SEARCH_API_KEY is not set")

const defaultBraveBaseURL = "https://api.search.brave.com/res/v1/web/search"

// Result is a single keyword search hit.
type Result struct {
	Title   string
	Link    string
	Snippet string
}

type BraveClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewBraveClient(apiKey string) *BraveClient {
	return &BraveClient{
		APIKey:  apiKey,
		BaseURL: defaultBraveBaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs a keyword query. Count is clamped to [1, 10].
func (c *BraveClient) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if count < 1 {
		count = 1
	}
	if count > 10 {
		count = 10
	}

	endpoint := c.BaseURL
	if endpoint == "" {
		endpoint = defaultBraveBaseURL
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call brave search API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search API returned status %d", resp.StatusCode)
	}

	var payload braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	results := make([]Result, 0, len(payload.Web.Results))
	for _, item := range payload.Web.Results {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.URL,
			Snippet: item.Description,
		})
	}

	return results, nil
}
