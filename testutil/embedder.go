// Package testutil provides deterministic embedders for tests so retrieval
// behavior can be asserted without calling a real embeddings provider.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/fabfab/rag-agent/embeddings"
)

const defaultDim = 64

// HashEmbedder maps text to a normalized bag-of-words vector: each lowercase
// token is hashed into one of Dim buckets. Texts that share tokens get higher
// cosine similarity, which is all retrieval tests need.
type HashEmbedder struct {
	Dim   int
	Calls int
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++

	dim := e.Dim
	if dim <= 0 {
		dim = defaultDim
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, dim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vector[h.Sum32()%uint32(dim)]++
		}

		var norm float64
		for _, v := range vector {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vector {
				vector[j] *= scale
			}
		}
		vectors[i] = vector
	}

	return vectors, nil
}

// FailingEmbedder fails every call with Err, for exercising backend-failure
// paths.
type FailingEmbedder struct {
	Err   error
	Calls int
}

func (e *FailingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	e.Calls++
	return nil, e.Err
}

var (
	_ embeddings.Embedder = (*HashEmbedder)(nil)
	_ embeddings.Embedder = (*FailingEmbedder)(nil)
)
