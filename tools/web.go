package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/retrieval"
	"github.com/fabfab/rag-agent/search"
	"github.com/fabfab/rag-agent/vectorstore"
)

const (
	webChunkSize    = 1200
	webChunkOverlap = 200
	webExcerptChars = 600
	webMaxExcerpts  = 4
	webMaxSources   = 5
)

// Searcher discovers candidate links for a query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]search.Result, error)
}

// Web answers questions from live web content: keyword search for candidate
// URLs, fetch each page, then chunk, embed, and retrieve against a throwaway
// index built for this query alone.
type Web struct {
	searcher Searcher
	fetcher  ingestion.PageLoader
	embedder embeddings.Embedder
	logger   *log.Logger
}

func NewWeb(searcher Searcher, fetcher ingestion.PageLoader, embedder embeddings.Embedder, logger *log.Logger) *Web {
	if logger == nil {
		logger = log.Default()
	}
	if fetcher == nil {
		fetcher = ingestion.NewPageFetcher()
	}

	return &Web{
		searcher: searcher,
		fetcher:  fetcher,
		embedder: embedder,
		logger:   logger,
	}
}

// Search runs the full web RAG pipeline. Credential and empty-result
// conditions come back as rendered messages, not errors; only backend
// failures (embedding, indexing) return an error.
func (t *Web) Search(ctx context.Context, query string, count int) (string, []string, error) {
	results, err := t.searcher.Search(ctx, query, count)
	if err != nil {
		if errors.Is(err, search.ErrMissingAPIKey) {
			return "BRAVE_SEARCH_API_KEY is not set.", nil, nil
		}
		return "", nil, fmt.Errorf("web search: %w", err)
	}

	links := dedupeLinks(results)
	if len(links) == 0 {
		return "No web results found.", nil, nil
	}

	docs := make([]ingestion.RawDocument, 0, len(links))
	for _, link := range links {
		doc, fetchErr := t.fetcher.Fetch(ctx, link)
		if fetchErr != nil {
			t.logger.Printf("fetch failed for %s: %v", link, fetchErr)
			continue
		}
		doc.Metadata[ingestion.MetaSource] = link
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return "Failed to load content from the top web results.", nil, nil
	}

	chunks := ingestion.NewSplitter(webChunkSize, webChunkOverlap).Split(docs)
	if len(chunks) == 0 {
		return "Failed to load content from the top web results.", nil, nil
	}

	index := vectorstore.NewMemory(t.embedder)
	if err := index.CreateOrAppend(ctx, chunks); err != nil {
		return "", nil, fmt.Errorf("index crawled pages: %w", err)
	}

	matches, err := retrieval.NewRetriever(index, t.embedder).Query(ctx, query, retrieval.DefaultK)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "No relevant passages were found in the crawled pages.", nil, nil
	}

	composer := retrieval.Composer{
		Header:         "Web RAG answer (supporting snippets):",
		SourcesHeader:  "Top sources:",
		FallbackSource: "unknown",
		ExcerptChars:   webExcerptChars,
		MaxExcerpts:    webMaxExcerpts,
		MaxSources:     webMaxSources,
	}
	answer, citations := composer.Compose(matches)
	return answer, citations, nil
}

// dedupeLinks keeps the first occurrence of each discovered link so no page
// is fetched twice.
func dedupeLinks(results []search.Result) []string {
	seen := make(map[string]struct{}, len(results))
	links := make([]string, 0, len(results))
	for _, result := range results {
		if result.Link == "" {
			continue
		}
		if _, ok := seen[result.Link]; ok {
			continue
		}
		seen[result.Link] = struct{}{}
		links = append(links, result.Link)
	}
	return links
}
