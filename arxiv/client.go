// Package arxiv queries the arXiv Atom API for paper metadata.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultArxivBaseURL = "http://export.arxiv.org/api/query"

// arXiv identifiers like 1605.08386 or 2107.03374v2.
var idPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)

// Entry is one paper from the Atom feed.
type Entry struct {
	ID        string
	Title     string
	Summary   string
	Published string
	Authors   []string
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: defaultArxivBaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// Search queries arXiv. A bare arXiv identifier is looked up directly;
// anything else runs as a free-text query over all fields.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Entry, error) {
	if maxResults < 1 {
		maxResults = 1
	}

	params := url.Values{}
	trimmed := strings.TrimSpace(query)
	if idPattern.MatchString(trimmed) {
		params.Set("id_list", trimmed)
	} else {
		params.Set("search_query", "all:"+trimmed)
	}
	params.Set("max_results", strconv.Itoa(maxResults))

	endpoint := c.BaseURL
	if endpoint == "" {
		endpoint = defaultArxivBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create arxiv request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call arxiv API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv API returned status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Entries))
	for _, item := range feed.Entries {
		entry := Entry{
			ID:        strings.TrimSpace(item.ID),
			Title:     collapseWhitespace(item.Title),
			Summary:   collapseWhitespace(item.Summary),
			Published: strings.TrimSpace(item.Published),
		}
		for _, author := range item.Authors {
			entry.Authors = append(entry.Authors, strings.TrimSpace(author.Name))
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// collapseWhitespace flattens the hard-wrapped text arXiv returns in titles
// and abstracts.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
