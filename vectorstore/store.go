// Package vectorstore provides append-only vector indexes over document
// chunks. An index starts empty and becomes "indexed" on the first successful
// insertion; appends extend the existing vector space and never rebuild it.
package vectorstore

import (
	"context"

	"github.com/fabfab/rag-agent/ingestion"
)

// Match pairs a retrieved chunk with its similarity score. Results are
// ordered by descending score; ties keep insertion order.
type Match struct {
	Chunk ingestion.Chunk
	Score float64
}

// Index is the incrementally-buildable vector store contract shared by the
// in-memory and Postgres implementations. CreateOrAppend embeds the whole
// batch through the configured provider before storing anything, so a
// provider failure leaves the index unchanged.
type Index interface {
	CreateOrAppend(ctx context.Context, chunks []ingestion.Chunk) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Indexed() bool
	Size() int
}
