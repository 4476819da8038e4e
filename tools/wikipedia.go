package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/retrieval"
	"github.com/fabfab/rag-agent/vectorstore"
	"github.com/fabfab/rag-agent/wikipedia"
)

const (
	wikiChunkSize    = 1000
	wikiChunkOverlap = 200
	wikiExcerptChars = 600
	wikiMaxExcerpts  = 4
	wikiMaxSources   = 5
	wikiQuickChars   = 1000
	wikiDefaultDocs  = 3
)

// WikiClient fetches Wikipedia articles.
type WikiClient interface {
	TopPages(ctx context.Context, query string, maxDocs int) ([]wikipedia.Page, error)
	Summary(ctx context.Context, query string, maxChars int) (string, error)
}

// Wikipedia answers detailed questions from fetched articles through a
// per-query index, and short factual ones through a plain capped extract.
type Wikipedia struct {
	client   WikiClient
	embedder embeddings.Embedder
	logger   *log.Logger
}

func NewWikipedia(client WikiClient, embedder embeddings.Embedder, logger *log.Logger) *Wikipedia {
	if logger == nil {
		logger = log.Default()
	}
	if client == nil {
		client = wikipedia.NewClient()
	}

	return &Wikipedia{client: client, embedder: embedder, logger: logger}
}

// Search fetches the top matching articles and retrieves the most relevant
// passages from a throwaway index over them.
func (t *Wikipedia) Search(ctx context.Context, query string, topDocs int) (string, []string, error) {
	if topDocs <= 0 {
		topDocs = wikiDefaultDocs
	}

	pages, err := t.client.TopPages(ctx, query, topDocs)
	if err != nil {
		return fmt.Sprintf("Failed to load from Wikipedia: %v", err), nil, nil
	}
	if len(pages) == 0 {
		return "No Wikipedia pages found.", nil, nil
	}

	docs := make([]ingestion.RawDocument, 0, len(pages))
	for _, page := range pages {
		docs = append(docs, ingestion.RawDocument{
			Content: page.Content,
			Metadata: map[string]string{
				ingestion.MetaSource: page.URL,
				ingestion.MetaTitle:  page.Title,
			},
		})
	}

	chunks := ingestion.NewSplitter(wikiChunkSize, wikiChunkOverlap).Split(docs)
	if len(chunks) == 0 {
		return "No relevant passages were found in the fetched Wikipedia pages.", nil, nil
	}

	index := vectorstore.NewMemory(t.embedder)
	if err := index.CreateOrAppend(ctx, chunks); err != nil {
		return "", nil, fmt.Errorf("index wikipedia pages: %w", err)
	}

	matches, err := retrieval.NewRetriever(index, t.embedder).Query(ctx, query, retrieval.DefaultK)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "No relevant passages were found in the fetched Wikipedia pages.", nil, nil
	}

	composer := retrieval.Composer{
		Header:         "Wikipedia RAG answer (supporting snippets):",
		SourcesHeader:  "Pages:",
		FallbackSource: "Wikipedia",
		ExcerptChars:   wikiExcerptChars,
		MaxExcerpts:    wikiMaxExcerpts,
		MaxSources:     wikiMaxSources,
		ResolveSource:  wikipediaSource,
	}
	answer, citations := composer.Compose(matches)
	return answer, citations, nil
}

// Quick returns a capped plain-text summary without building an index. Meant
// for short factual questions where retrieval would be overkill.
func (t *Wikipedia) Quick(ctx context.Context, query string) (string, error) {
	summary, err := t.client.Summary(ctx, query, wikiQuickChars)
	if err != nil {
		return fmt.Sprintf("Failed to load from Wikipedia: %v", err), nil
	}
	if summary == "" {
		return "No Wikipedia pages found.", nil
	}
	return summary, nil
}

// wikipediaSource renders citations as the article title with its URL,
// falling back to whichever half is present.
func wikipediaSource(metadata map[string]string) string {
	title := strings.TrimSpace(metadata[ingestion.MetaTitle])
	pageURL := strings.TrimSpace(metadata[ingestion.MetaSource])

	switch {
	case title != "" && pageURL != "":
		return fmt.Sprintf("%s (%s)", title, pageURL)
	case title != "":
		return title
	default:
		return pageURL
	}
}
