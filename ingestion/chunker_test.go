package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextEmpty(t *testing.T) {
	s := NewSplitter(1200, 200)
	if got := s.SplitText(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := s.SplitText("   \n\t  "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestSplitTextSingleChunk(t *testing.T) {
	s := NewSplitter(1200, 200)
	text := "A short paragraph that fits in one chunk."
	chunks := s.SplitText(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Fatalf("single chunk should be the text verbatim, got %q", chunks[0])
	}
}

func TestSplitTextChunkCount(t *testing.T) {
	// 375 eight-byte words make exactly 3000 characters. With size 1200 and
	// overlap 200 this must produce exactly 3 chunks.
	text := strings.Repeat("abcdefg ", 375)
	if len(text) != 3000 {
		t.Fatalf("fixture length = %d, want 3000", len(text))
	}

	chunks := NewSplitter(1200, 200).SplitText(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestSplitTextBoundsAndOverlap(t *testing.T) {
	const size, overlap = 1200, 200

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 120)
	chunks := NewSplitter(size, overlap).SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("fixture too small to exercise overlap, got %d chunks", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > size {
			t.Errorf("chunk %d has %d bytes, exceeds size %d", i, len(chunk), size)
		}
	}

	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-overlap:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Fatalf("chunk %d does not start with the last %d bytes of chunk %d", i, overlap, i-1)
		}
	}
}

func TestSplitTextZeroOverlap(t *testing.T) {
	text := strings.Repeat("word ", 600)
	chunks := NewSplitter(1000, 0).SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("zero-overlap chunks should concatenate back to the input")
	}
}

func TestSplitTextPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("x", 400)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := NewSplitter(900, 100).SplitText(text)

	for i, chunk := range chunks {
		if len(chunk) > 900 {
			t.Errorf("chunk %d has %d bytes, exceeds size", i, len(chunk))
		}
	}
	// The first chunk should end on a paragraph break, not mid-paragraph.
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk should end at a paragraph boundary, got %q tail", chunks[0][len(chunks[0])-10:])
	}
}

func TestSplitTextHardCutsUnbrokenText(t *testing.T) {
	text := strings.Repeat("a", 5000)
	chunks := NewSplitter(1200, 200).SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for unbroken text, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1200 {
			t.Errorf("chunk %d has %d bytes, exceeds size", i, len(chunk))
		}
	}
}

func TestSplitTextMultibyteHardCut(t *testing.T) {
	// A leading ASCII byte misaligns the two-byte runes so the hard cut
	// would land mid-rune without backing up.
	text := "x" + strings.Repeat("é", 3000)
	chunks := NewSplitter(1200, 200).SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1200 {
			t.Errorf("chunk %d has %d bytes, exceeds size", i, len(chunk))
		}
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d contains invalid UTF-8: %q", i, chunk[:16])
		}
	}
}

func TestNewSplitterClamps(t *testing.T) {
	if s := NewSplitter(0, 200); s.ChunkSize() != DefaultChunkSize {
		t.Errorf("non-positive size should fall back to default, got %d", s.ChunkSize())
	}
	if s := NewSplitter(1000, -5); s.ChunkOverlap() != 0 {
		t.Errorf("negative overlap should clamp to 0, got %d", s.ChunkOverlap())
	}
	if s := NewSplitter(1000, 1000); s.ChunkOverlap() != 500 {
		t.Errorf("overlap >= size should clamp to half the size, got %d", s.ChunkOverlap())
	}
	if s := NewSplitter(1000, 2000); s.ChunkOverlap() != 500 {
		t.Errorf("overlap beyond size should clamp to half the size, got %d", s.ChunkOverlap())
	}
}

func TestSplitCopiesMetadata(t *testing.T) {
	doc := RawDocument{
		Content:  strings.Repeat("lorem ipsum dolor sit amet ", 200),
		Metadata: map[string]string{MetaSource: "doc.txt"},
	}

	chunks := NewSplitter(1000, 100).Split([]RawDocument{doc})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	chunks[0].Metadata["mutated"] = "yes"
	if _, ok := chunks[1].Metadata["mutated"]; ok {
		t.Fatal("chunk metadata maps must be independent copies")
	}
	if _, ok := doc.Metadata["mutated"]; ok {
		t.Fatal("chunk metadata must not alias the document metadata")
	}
	for i, chunk := range chunks {
		if chunk.Metadata[MetaSource] != "doc.txt" {
			t.Fatalf("chunk %d lost its source metadata", i)
		}
	}
}
