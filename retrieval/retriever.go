// Package retrieval executes top-k similarity queries and formats the
// results into source-attributed answer blocks.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/vectorstore"
)

// ErrNotIndexed reports a query against an index that has never been
// populated. Callers use it to distinguish "nothing loaded yet" from a
// search that simply found no relevant passages.
var ErrNotIndexed = errors.New("index contains no chunks")

const (
	minK     = 1
	maxK     = 10
	DefaultK = 4
)

// Retriever embeds a query and searches one Index. An empty result with a
// nil error means the index was searched and nothing relevant came back.
type Retriever struct {
	index    vectorstore.Index
	embedder embeddings.Embedder
}

func NewRetriever(index vectorstore.Index, embedder embeddings.Embedder) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

func (r *Retriever) Query(ctx context.Context, text string, k int) ([]vectorstore.Match, error) {
	if r.index == nil {
		return nil, fmt.Errorf("index is not configured")
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}

	if k <= 0 {
		k = DefaultK
	}
	if k < minK {
		k = minK
	}
	if k > maxK {
		k = maxK
	}

	// Empty index short-circuits before any embedding or backend call.
	if !r.index.Indexed() {
		return nil, ErrNotIndexed
	}

	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	matches, err := r.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	return matches, nil
}
