// Package wikipedia fetches article text through the MediaWiki API: a title
// search followed by plain-text extracts.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"
)

const defaultWikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

// Page is one fetched article with its full plain-text extract.
type Page struct {
	Title   string
	URL     string
	Content string
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: defaultWikipediaBaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Missing *struct{} `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns up to limit article titles matching the query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit < 1 {
		limit = 1
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")

	var payload searchResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}

	titles := make([]string, 0, len(payload.Query.Search))
	for _, hit := range payload.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// Fetch loads the plain-text extract of one article by title.
func (c *Client) Fetch(ctx context.Context, title string) (Page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts|info")
	params.Set("explaintext", "1")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)
	params.Set("format", "json")

	var payload extractResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return Page{}, fmt.Errorf("wikipedia extract: %w", err)
	}

	for _, page := range payload.Query.Pages {
		if page.Missing != nil || page.Extract == "" {
			continue
		}
		return Page{Title: page.Title, URL: page.FullURL, Content: page.Extract}, nil
	}

	return Page{}, fmt.Errorf("no extract for %q", title)
}

// TopPages searches and fetches up to maxDocs articles, skipping articles
// whose extract cannot be loaded.
func (c *Client) TopPages(ctx context.Context, query string, maxDocs int) ([]Page, error) {
	titles, err := c.Search(ctx, query, maxDocs)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(titles))
	for _, title := range titles {
		page, err := c.Fetch(ctx, title)
		if err != nil {
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Summary returns the extract of the best-matching article truncated to
// maxChars, for quick factual lookups that need no index.
func (c *Client) Summary(ctx context.Context, query string, maxChars int) (string, error) {
	pages, err := c.TopPages(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", nil
	}

	content := pages[0].Content
	if maxChars > 0 && len(content) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + " ..."
	}
	return fmt.Sprintf("%s\n%s", pages[0].Title, content), nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	endpoint := c.BaseURL
	if endpoint == "" {
		endpoint = defaultWikipediaBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "rag-agent/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("call mediawiki API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mediawiki API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
