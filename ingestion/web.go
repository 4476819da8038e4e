package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const maxPageBytes = 10 << 20

// PageFetcher downloads a web page and extracts its readable text content.
// The "source" metadata is always the URL the caller asked for, never a
// redirected or canonicalized one, so citations stay consistent with what the
// user provided.
type PageFetcher struct {
	client *http.Client
}

func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (RawDocument, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return RawDocument{}, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return RawDocument{}, fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("User-Agent", "rag-agent/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return RawDocument{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RawDocument{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return RawDocument{}, fmt.Errorf("read page body: %w", err)
	}

	content, title := extractPageText(body, parsed)
	if strings.TrimSpace(content) == "" {
		return RawDocument{}, fmt.Errorf("page has no extractable text")
	}

	metadata := map[string]string{MetaSource: pageURL}
	if title != "" {
		metadata[MetaTitle] = title
	}

	return RawDocument{Content: content, Metadata: metadata}, nil
}

// extractPageText prefers readability's main-content extraction and falls
// back to stripping the full document when a page has no recognizable
// article body.
func extractPageText(body []byte, pageURL *url.URL) (content, title string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return normalizePlainText(article.TextContent), strings.TrimSpace(article.Title)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	return extractHTMLText(doc), strings.TrimSpace(doc.Find("title").First().Text())
}
