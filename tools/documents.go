// Package tools wires the ingestion, indexing, and retrieval components into
// the retrieval tools exposed to the surrounding agent: user documents, web
// search, Wikipedia, arXiv, and a fixed knowledge base. Each tool owns its
// index; nothing is shared across tools or sessions.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/retrieval"
	"github.com/fabfab/rag-agent/vectorstore"
)

const (
	docExcerptChars = 700
	docMaxExcerpts  = 4
	docMaxSources   = 8
)

// Messages rendered for the document tool's signal outcomes.
const (
	msgNothingLoaded = "No documents loaded. Provide valid paths in files or URLs."
	msgNotIndexed    = "No indexed documents. Run ingest first."
	msgNoPassages    = "No relevant passages found in the indexed documents."
)

// ProvenanceRecorder receives per-source chunk provenance after a successful
// ingest. Recording failures are logged and never fail the ingest.
type ProvenanceRecorder interface {
	RecordDocument(ctx context.Context, source, title string, chunks []ingestion.Chunk) error
}

// Documents is the user-document tool. Its index is the longest-lived entity
// in a session: it persists across ingest calls and accumulates chunks, and
// it is owned exclusively by this tool instance.
type Documents struct {
	loader     *ingestion.Loader
	index      vectorstore.Index
	retriever  *retrieval.Retriever
	provenance ProvenanceRecorder
	logger     *log.Logger
}

// Status reports whether anything has been indexed and how much.
type Status struct {
	Indexed    bool
	ChunkCount int
}

// IngestReport is the observable result of one ingest batch, including the
// per-source outcomes so skipped and failed sources stay visible.
type IngestReport struct {
	Chunks   int
	Files    int
	URLs     int
	Outcomes []ingestion.SourceOutcome
	Message  string
}

// NewDocuments builds the document tool around a caller-owned index. The
// loader and provenance recorder are optional.
func NewDocuments(loader *ingestion.Loader, index vectorstore.Index, retriever *retrieval.Retriever, provenance ProvenanceRecorder, logger *log.Logger) *Documents {
	if logger == nil {
		logger = log.Default()
	}
	if loader == nil {
		loader = ingestion.NewLoader(nil, logger)
	}

	return &Documents{
		loader:     loader,
		index:      index,
		retriever:  retriever,
		provenance: provenance,
		logger:     logger,
	}
}

// Ingest loads the given files and URLs, chunks them, and appends the chunks
// to the tool's index. Per-source failures are reported in the outcome list;
// only an embedding or index backend failure returns an error, in which case
// the index is left unchanged.
func (t *Documents) Ingest(ctx context.Context, files, urls []string, chunkSize, chunkOverlap int) (IngestReport, error) {
	report := IngestReport{Files: len(files), URLs: len(urls)}

	docs, outcomes, err := t.loader.Load(ctx, files, urls)
	report.Outcomes = outcomes
	if err != nil {
		if errors.Is(err, ingestion.ErrNothingLoaded) {
			report.Message = msgNothingLoaded
			return report, nil
		}
		return report, err
	}

	if chunkSize <= 0 {
		chunkSize = ingestion.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = ingestion.DefaultChunkOverlap
	}
	splitter := ingestion.NewSplitter(chunkSize, chunkOverlap)

	chunks := splitter.Split(docs)
	if len(chunks) == 0 {
		report.Message = msgNothingLoaded
		return report, nil
	}

	if err := t.index.CreateOrAppend(ctx, chunks); err != nil {
		return report, fmt.Errorf("index documents: %w", err)
	}

	t.recordProvenance(ctx, chunks)

	report.Chunks = len(chunks)
	report.Message = fmt.Sprintf("Indexed %d chunks from %d file(s) and %d URL(s).", len(chunks), len(files), len(urls))
	return report, nil
}

func (t *Documents) recordProvenance(ctx context.Context, chunks []ingestion.Chunk) {
	if t.provenance == nil {
		return
	}

	order := make([]string, 0)
	bySource := make(map[string][]ingestion.Chunk)
	for _, chunk := range chunks {
		source := chunk.Metadata[ingestion.MetaSource]
		if _, ok := bySource[source]; !ok {
			order = append(order, source)
		}
		bySource[source] = append(bySource[source], chunk)
	}

	for _, source := range order {
		group := bySource[source]
		title := group[0].Metadata[ingestion.MetaTitle]
		if err := t.provenance.RecordDocument(ctx, source, title, group); err != nil {
			t.logger.Printf("provenance sync failed for %s: %v", source, err)
		}
	}
}

// Search queries the indexed corpus and renders excerpts with citations.
// The rendered message distinguishes an empty index from a search that
// found nothing relevant.
func (t *Documents) Search(ctx context.Context, query string, k int) (string, []string, error) {
	matches, err := t.retriever.Query(ctx, query, k)
	if err != nil {
		if errors.Is(err, retrieval.ErrNotIndexed) {
			return msgNotIndexed, nil, nil
		}
		return "", nil, err
	}
	if len(matches) == 0 {
		return msgNoPassages, nil, nil
	}

	composer := retrieval.Composer{
		Header:         "Document RAG answer (supporting snippets):",
		SourcesHeader:  "Sources:",
		FallbackSource: "uploaded_document",
		ExcerptChars:   docExcerptChars,
		MaxExcerpts:    docMaxExcerpts,
		MaxSources:     docMaxSources,
	}
	answer, citations := composer.Compose(matches)
	return answer, citations, nil
}

func (t *Documents) Status() Status {
	return Status{
		Indexed:    t.index.Indexed(),
		ChunkCount: t.index.Size(),
	}
}
