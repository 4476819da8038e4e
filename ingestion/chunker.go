package ingestion

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize and DefaultChunkOverlap match the document tool's
	// ingest defaults.
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// separators, largest semantic boundary first. A piece that still exceeds
// the budget after the last separator is cut at the byte level.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces bounded-size chunks from raw documents. Splitting is
// hierarchical (paragraph, then line, then sentence, then word) so pieces
// break on the largest boundary that fits. Each chunk after the first within
// a document starts with the literal last `overlap` bytes of the previous
// chunk, preserving context across boundaries.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter clamps invalid parameters instead of failing: non-positive
// sizes fall back to the defaults and an overlap that would reach the chunk
// size is reduced to half of it, which keeps splitting from ever stalling.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{size: size, overlap: overlap}
}

func (s *Splitter) ChunkSize() int    { return s.size }
func (s *Splitter) ChunkOverlap() int { return s.overlap }

// Split chunks every document, copying the parent metadata onto each chunk.
func (s *Splitter) Split(docs []RawDocument) []Chunk {
	chunks := make([]Chunk, 0)
	for _, doc := range docs {
		for _, text := range s.SplitText(doc.Content) {
			chunks = append(chunks, Chunk{
				Text:     text,
				Metadata: copyMetadata(doc.Metadata),
			})
		}
	}
	return chunks
}

// SplitText splits a single text into chunks of at most ChunkSize bytes with
// exactly ChunkOverlap bytes shared between consecutive chunks.
func (s *Splitter) SplitText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.size {
		return []string{text}
	}

	// Units are capped at size-overlap so any unit still fits after the
	// overlap prefix is prepended.
	budget := s.size - s.overlap
	units := splitUnits(text, separators, budget)

	chunks := make([]string, 0)
	current := ""
	for _, unit := range units {
		if current != "" && len(current)+len(unit) > s.size {
			chunks = append(chunks, current)
			if s.overlap > 0 && len(current) > s.overlap {
				current = current[len(current)-s.overlap:]
			} else if s.overlap == 0 {
				current = ""
			}
		}
		current += unit
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitUnits recursively splits text into pieces of at most budget bytes,
// trying each separator in order and hard-cutting only as a last resort.
// Separators stay attached to the preceding piece so concatenating the units
// reproduces the input exactly.
func splitUnits(text string, seps []string, budget int) []string {
	if len(text) <= budget {
		return []string{text}
	}

	if len(seps) == 0 {
		out := make([]string, 0, len(text)/budget+1)
		for len(text) > budget {
			// Back the cut up to a rune boundary so hard cuts never emit
			// invalid UTF-8.
			cut := budget
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = budget
			}
			out = append(out, text[:cut])
			text = text[cut:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	out := make([]string, 0)
	for _, piece := range splitKeep(text, seps[0]) {
		if len(piece) <= budget {
			out = append(out, piece)
			continue
		}
		out = append(out, splitUnits(piece, seps[1:], budget)...)
	}
	return out
}

func splitKeep(text, sep string) []string {
	parts := make([]string, 0)
	for {
		i := strings.Index(text, sep)
		if i < 0 {
			break
		}
		parts = append(parts, text[:i+len(sep)])
		text = text[i+len(sep):]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
