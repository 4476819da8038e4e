package tools

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/retrieval"
	"github.com/fabfab/rag-agent/testutil"
	"github.com/fabfab/rag-agent/vectorstore"
)

func quietLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

func newDocumentsTool(embedder embeddings.Embedder, provenance ProvenanceRecorder) *Documents {
	index := vectorstore.NewMemory(embedder)
	retriever := retrieval.NewRetriever(index, embedder)
	return NewDocuments(nil, index, retriever, provenance, quietLogger())
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestDocumentsSearchBeforeIngest(t *testing.T) {
	tool := newDocumentsTool(&testutil.HashEmbedder{}, nil)

	answer, citations, err := tool.Search(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if answer != msgNotIndexed {
		t.Fatalf("answer = %q, want %q", answer, msgNotIndexed)
	}
	if citations != nil {
		t.Fatalf("expected no citations, got %v", citations)
	}
}

func TestDocumentsIngestNothing(t *testing.T) {
	tool := newDocumentsTool(&testutil.HashEmbedder{}, nil)

	report, err := tool.Ingest(context.Background(), nil, nil, 1200, 200)
	if err != nil {
		t.Fatalf("an empty batch is a signal, not an error: %v", err)
	}
	if report.Message != msgNothingLoaded {
		t.Fatalf("message = %q, want %q", report.Message, msgNothingLoaded)
	}
	if report.Chunks != 0 {
		t.Fatalf("chunks = %d, want 0", report.Chunks)
	}

	status := tool.Status()
	if status.Indexed || status.ChunkCount != 0 {
		t.Fatalf("index must stay empty, got %+v", status)
	}
}

func TestDocumentsIngestChunkCountAndAccumulation(t *testing.T) {
	// 375 eight-byte words are exactly 3000 characters, which size 1200 and
	// overlap 200 split into 3 chunks.
	path := writeTempFile(t, "big.txt", strings.Repeat("abcdefg ", 375))
	tool := newDocumentsTool(&testutil.HashEmbedder{}, nil)
	ctx := context.Background()

	report, err := tool.Ingest(ctx, []string{path}, nil, 1200, 200)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Chunks != 3 {
		t.Fatalf("chunks = %d, want 3", report.Chunks)
	}
	if report.Message != "Indexed 3 chunks from 1 file(s) and 0 URL(s)." {
		t.Fatalf("unexpected message %q", report.Message)
	}

	status := tool.Status()
	if !status.Indexed || status.ChunkCount != 3 {
		t.Fatalf("status = %+v, want indexed with 3 chunks", status)
	}

	// A second ingest appends rather than replacing.
	if _, err := tool.Ingest(ctx, []string{path}, nil, 1200, 200); err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if got := tool.Status().ChunkCount; got != 6 {
		t.Fatalf("chunk count after second ingest = %d, want 6", got)
	}
}

func TestDocumentsIngestContinuesPastBadSource(t *testing.T) {
	good := writeTempFile(t, "good.txt", "usable content for the index")
	missing := filepath.Join(t.TempDir(), "missing.txt")
	tool := newDocumentsTool(&testutil.HashEmbedder{}, nil)

	report, err := tool.Ingest(context.Background(), []string{missing, good}, nil, 1200, 200)
	if err != nil {
		t.Fatalf("one bad source must not fail the batch: %v", err)
	}
	if report.Chunks != 1 {
		t.Fatalf("chunks = %d, want 1", report.Chunks)
	}

	var failed int
	for _, outcome := range report.Outcomes {
		if outcome.Status == ingestion.StatusFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected 1 failed outcome, got %d", failed)
	}
}

func TestDocumentsIngestEmbedFailure(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "content that will never be embedded")
	tool := newDocumentsTool(&testutil.FailingEmbedder{Err: errors.New("provider down")}, nil)

	if _, err := tool.Ingest(context.Background(), []string{path}, nil, 1200, 200); err == nil {
		t.Fatal("expected an error when embedding fails")
	}

	status := tool.Status()
	if status.Indexed || status.ChunkCount != 0 {
		t.Fatalf("failed ingest must leave the index unchanged, got %+v", status)
	}
}

func TestDocumentsSearchFindsIngestedContent(t *testing.T) {
	solar := writeTempFile(t, "solar.txt", "Solar panels convert sunlight into electricity. Photovoltaic cells produce direct current.")
	bread := writeTempFile(t, "bread.txt", "Bread baking requires yeast flour and water. Kneading develops gluten structure.")
	tool := newDocumentsTool(&testutil.HashEmbedder{}, nil)
	ctx := context.Background()

	if _, err := tool.Ingest(ctx, []string{solar, bread}, nil, 1200, 200); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	answer, citations, err := tool.Search(ctx, "solar panels electricity", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.HasPrefix(answer, "Document RAG answer (supporting snippets):") {
		t.Fatalf("unexpected answer header:\n%s", answer)
	}
	if !strings.Contains(answer, "Solar panels convert sunlight") {
		t.Fatalf("top excerpt should come from the solar document:\n%s", answer)
	}

	absSolar, _ := filepath.Abs(solar)
	if len(citations) != 1 || citations[0] != absSolar {
		t.Fatalf("citations = %v, want [%s]", citations, absSolar)
	}
}

type fakeProvenance struct {
	calls  int
	chunks map[string]int
	err    error
}

func (f *fakeProvenance) RecordDocument(_ context.Context, source, _ string, chunks []ingestion.Chunk) error {
	f.calls++
	if f.chunks == nil {
		f.chunks = make(map[string]int)
	}
	f.chunks[source] += len(chunks)
	return f.err
}

func TestDocumentsIngestRecordsProvenancePerSource(t *testing.T) {
	first := writeTempFile(t, "first.txt", "first document body")
	second := writeTempFile(t, "second.txt", "second document body")
	recorder := &fakeProvenance{}
	tool := newDocumentsTool(&testutil.HashEmbedder{}, recorder)

	if _, err := tool.Ingest(context.Background(), []string{first, second}, nil, 1200, 200); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if recorder.calls != 2 {
		t.Fatalf("expected one provenance call per source, got %d", recorder.calls)
	}

	absFirst, _ := filepath.Abs(first)
	if recorder.chunks[absFirst] != 1 {
		t.Fatalf("chunk count for %s = %d, want 1", absFirst, recorder.chunks[absFirst])
	}
}

func TestDocumentsIngestSurvivesProvenanceFailure(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "content worth indexing")
	recorder := &fakeProvenance{err: errors.New("graph down")}
	tool := newDocumentsTool(&testutil.HashEmbedder{}, recorder)

	report, err := tool.Ingest(context.Background(), []string{path}, nil, 1200, 200)
	if err != nil {
		t.Fatalf("provenance failures must not fail ingest: %v", err)
	}
	if report.Chunks != 1 {
		t.Fatalf("chunks = %d, want 1", report.Chunks)
	}
	if !tool.Status().Indexed {
		t.Fatal("index should be populated despite the provenance failure")
	}
}
