package tools

import (
	"context"
	"fmt"
	"log"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/retrieval"
	"github.com/fabfab/rag-agent/vectorstore"
)

const (
	kbChunkSize    = 1000
	kbChunkOverlap = 200
	kbExcerptChars = 600
	kbMaxExcerpts  = 4
	kbMaxSources   = 5
)

// KnowledgeBase serves searches over one fixed external page, fetched and
// indexed once at construction. The index lives for the tool's lifetime and
// is never appended to afterwards.
type KnowledgeBase struct {
	url       string
	retriever *retrieval.Retriever
}

func NewKnowledgeBase(ctx context.Context, pageURL string, fetcher ingestion.PageLoader, embedder embeddings.Embedder, logger *log.Logger) (*KnowledgeBase, error) {
	if logger == nil {
		logger = log.Default()
	}
	if fetcher == nil {
		fetcher = ingestion.NewPageFetcher()
	}

	doc, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge base %s: %w", pageURL, err)
	}
	doc.Metadata[ingestion.MetaSource] = pageURL

	chunks := ingestion.NewSplitter(kbChunkSize, kbChunkOverlap).Split([]ingestion.RawDocument{doc})
	if len(chunks) == 0 {
		return nil, fmt.Errorf("knowledge base %s has no indexable text", pageURL)
	}

	index := vectorstore.NewMemory(embedder)
	if err := index.CreateOrAppend(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index knowledge base: %w", err)
	}

	logger.Printf("knowledge base ready: %s (%d chunks)", pageURL, index.Size())

	return &KnowledgeBase{
		url:       pageURL,
		retriever: retrieval.NewRetriever(index, embedder),
	}, nil
}

func (t *KnowledgeBase) Search(ctx context.Context, query string) (string, []string, error) {
	matches, err := t.retriever.Query(ctx, query, retrieval.DefaultK)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No relevant passages found in %s.", t.url), nil, nil
	}

	composer := retrieval.Composer{
		Header:         "Knowledge base answer (supporting snippets):",
		SourcesHeader:  "Sources:",
		FallbackSource: t.url,
		ExcerptChars:   kbExcerptChars,
		MaxExcerpts:    kbMaxExcerpts,
		MaxSources:     kbMaxSources,
	}
	answer, citations := composer.Compose(matches)
	return answer, citations, nil
}
