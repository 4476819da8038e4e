// Package knowledge mirrors ingestion provenance into Neo4j: one Document
// node per source with its Chunk nodes attached. The graph is advisory;
// sync failures are logged by callers and never invalidate an ingest.
package knowledge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fabfab/rag-agent/ingestion"
)

type Document struct {
	ID     string
	Source string
	Title  string
	Chunks []Chunk
}

type Chunk struct {
	ID    string
	Index int
	Text  string
}

// Insight summarizes what the graph knows about one source, used to enrich
// citations.
type Insight struct {
	ChunkCount int
}

// Graph records ingestion provenance against a Neo4j driver.
type Graph struct {
	driver neo4j.DriverWithContext
}

func NewGraph(driver neo4j.DriverWithContext) *Graph {
	return &Graph{driver: driver}
}

// RecordDocument appends chunk nodes for a source. Appending (rather than
// replacing) matches the index contract: repeated ingests of the same source
// accumulate.
func (g *Graph) RecordDocument(ctx context.Context, source, title string, chunks []ingestion.Chunk) error {
	if g == nil || g.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	doc := Document{
		ID:     uuid.New().String(),
		Source: source,
		Title:  title,
		Chunks: make([]Chunk, 0, len(chunks)),
	}
	for idx, chunk := range chunks {
		doc.Chunks = append(doc.Chunks, Chunk{
			ID:    uuid.New().String(),
			Index: idx,
			Text:  chunk.Text,
		})
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (d:Document {source: $source})
			SET d.title = $title,
			    d.updated_at = datetime()
		`, map[string]any{
			"source": doc.Source,
			"title":  doc.Title,
		}); err != nil {
			return nil, fmt.Errorf("upsert document node: %w", err)
		}

		for _, chunk := range doc.Chunks {
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {source: $source})
				CREATE (c:Chunk {id: $chunk_id, index: $chunk_index, text: $chunk_text})
				CREATE (d)-[:HAS_CHUNK {order: $chunk_index}]->(c)
			`, map[string]any{
				"source":      doc.Source,
				"chunk_id":    chunk.ID,
				"chunk_index": chunk.Index,
				"chunk_text":  chunk.Text,
			}); err != nil {
				return nil, fmt.Errorf("create chunk node: %w", err)
			}
		}

		return nil, nil
	})

	return err
}

// DocumentInsights returns per-source chunk counts for the given sources.
// Sources unknown to the graph are simply absent from the result.
func (g *Graph) DocumentInsights(ctx context.Context, sources []string) (map[string]Insight, error) {
	if g == nil || g.driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (d:Document)-[:HAS_CHUNK]->(c:Chunk)
			WHERE d.source IN $sources
			RETURN d.source AS source, count(c) AS chunks
		`, map[string]any{"sources": sources})
		if err != nil {
			return nil, fmt.Errorf("query document insights: %w", err)
		}

		insights := map[string]Insight{}
		for records.Next(ctx) {
			record := records.Record()
			source, _ := record.Get("source")
			chunks, _ := record.Get("chunks")

			name, ok := source.(string)
			if !ok {
				continue
			}
			count, ok := chunks.(int64)
			if !ok {
				continue
			}
			insights[name] = Insight{ChunkCount: int(count)}
		}
		return insights, records.Err()
	})
	if err != nil {
		return nil, err
	}

	return result.(map[string]Insight), nil
}
