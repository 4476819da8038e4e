package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
)

// Memory is a brute-force cosine-similarity index held in process memory.
// It backs the per-session document index and the throwaway per-query
// indexes used by the web and Wikipedia tools.
type Memory struct {
	embedder embeddings.Embedder

	mu      sync.RWMutex
	vectors [][]float32
	chunks  []ingestion.Chunk
}

func NewMemory(embedder embeddings.Embedder) *Memory {
	return &Memory{embedder: embedder}
}

func (m *Memory) CreateOrAppend(ctx context.Context, chunks []ingestion.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if m.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = append(m.vectors, vectors...)
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *Memory) Search(_ context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		k = 4
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	order := make([]int, len(m.vectors))
	scores := make([]float64, len(m.vectors))
	for i := range m.vectors {
		order[i] = i
		scores[i] = cosine(m.vectors[i], vector)
	}

	// Stable sort keeps insertion order on score ties.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	matches := make([]Match, 0, k)
	for _, idx := range order[:k] {
		matches = append(matches, Match{Chunk: m.chunks[idx], Score: scores[idx]})
	}
	return matches, nil
}

func (m *Memory) Indexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks) > 0
}

func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Index = (*Memory)(nil)
