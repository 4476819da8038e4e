package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
)

// Postgres is a pgvector-backed Index. Rows are scoped to a collection name
// so independent sessions sharing a database never see each other's chunks.
type Postgres struct {
	pool       *pgxpool.Pool
	embedder   embeddings.Embedder
	collection string
	dimension  int

	mu    sync.RWMutex
	count int
}

// NewPostgres ensures the chunk schema exists and loads the current chunk
// count for the collection, so Indexed/Size reflect previously persisted
// state.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, embedder embeddings.Embedder, collection string, dimension int) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive")
	}

	if err := ensureSchema(ctx, pool, dimension); err != nil {
		return nil, err
	}

	store := &Postgres{
		pool:       pool,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
	}

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM rag_chunks WHERE collection = $1", collection).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count existing chunks: %w", err)
	}
	store.count = count

	return store, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_chunks (
			id UUID PRIMARY KEY,
			collection TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			source TEXT,
			metadata JSONB,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_rag_chunks_collection ON rag_chunks(collection)",
		"CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding ON rag_chunks USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// CreateOrAppend embeds the batch and inserts all rows in one transaction;
// a failure at any point rolls back and leaves prior chunks untouched.
func (p *Postgres) CreateOrAppend(ctx context.Context, chunks []ingestion.Chunk) (err error) {
	if len(chunks) == 0 {
		return nil
	}
	if p.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	base := p.count
	for idx, chunk := range chunks {
		metadata, marshalErr := json.Marshal(chunk.Metadata)
		if marshalErr != nil {
			return fmt.Errorf("marshal chunk metadata: %w", marshalErr)
		}

		if _, err = tx.Exec(ctx, `
			INSERT INTO rag_chunks (id, collection, chunk_index, content, source, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New(), p.collection, base+idx, chunk.Text, chunk.Metadata[ingestion.MetaSource], metadata, pgvector.NewVector(vectors[idx])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", idx, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	p.count += len(chunks)
	return nil
}

func (p *Postgres) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		k = 4
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT content, metadata, (embedding <-> $1::vector) AS distance
		FROM rag_chunks
		WHERE collection = $2
		ORDER BY embedding <-> $1::vector, chunk_index
		LIMIT $3
	`, pgvector.NewVector(vector), p.collection, k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var (
			content  string
			metaJSON []byte
			distance float64
		)
		if scanErr := rows.Scan(&content, &metaJSON, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}

		metadata := map[string]string{}
		if len(metaJSON) > 0 {
			if unmarshalErr := json.Unmarshal(metaJSON, &metadata); unmarshalErr != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", unmarshalErr)
			}
		}

		matches = append(matches, Match{
			Chunk: ingestion.Chunk{Text: content, Metadata: metadata},
			Score: 1 / (1 + distance),
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return matches, nil
}

func (p *Postgres) Indexed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count > 0
}

func (p *Postgres) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

var _ Index = (*Postgres)(nil)
