package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/vectorstore"
)

// Composer renders retrieval matches into a human-readable block of excerpts
// plus a deduplicated, order-preserving citation list. Display caps for
// excerpts and sources are independent; the returned citation set is always
// complete.
type Composer struct {
	// Header introduces the excerpt block, e.g. "Document RAG answer
	// (supporting snippets):".
	Header string
	// SourcesHeader introduces the citation list, e.g. "Sources:".
	SourcesHeader string
	// FallbackSource is used when a chunk carries no usable source metadata.
	FallbackSource string
	// ExcerptChars is the per-excerpt character budget before truncation.
	ExcerptChars int
	// MaxExcerpts caps how many excerpts are rendered.
	MaxExcerpts int
	// MaxSources caps how many sources are rendered.
	MaxSources int
	// ResolveSource overrides the default source→file_path→fallback metadata
	// resolution when set.
	ResolveSource func(metadata map[string]string) string
}

func (c Composer) Compose(matches []vectorstore.Match) (string, []string) {
	excerpts := make([]string, 0, len(matches))
	citations := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, match := range matches {
		source := c.sourceFor(match.Chunk.Metadata)
		if _, ok := seen[source]; !ok {
			seen[source] = struct{}{}
			citations = append(citations, source)
		}
		excerpts = append(excerpts, fmt.Sprintf("- Excerpt: %s\n  Source: %s", c.excerpt(match.Chunk.Text), source))
	}

	maxExcerpts := c.MaxExcerpts
	if maxExcerpts <= 0 || maxExcerpts > len(excerpts) {
		maxExcerpts = len(excerpts)
	}
	maxSources := c.MaxSources
	if maxSources <= 0 || maxSources > len(citations) {
		maxSources = len(citations)
	}

	builder := &strings.Builder{}
	builder.WriteString(c.Header)
	builder.WriteString("\n")
	builder.WriteString(strings.Join(excerpts[:maxExcerpts], "\n"))
	builder.WriteString("\n\n")
	builder.WriteString(c.SourcesHeader)
	builder.WriteString("\n")
	for i, source := range citations[:maxSources] {
		builder.WriteString("* ")
		builder.WriteString(source)
		if i < maxSources-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String(), citations
}

func (c Composer) sourceFor(metadata map[string]string) string {
	if c.ResolveSource != nil {
		if source := strings.TrimSpace(c.ResolveSource(metadata)); source != "" {
			return source
		}
	}
	if source := strings.TrimSpace(metadata[ingestion.MetaSource]); source != "" {
		return source
	}
	if path := strings.TrimSpace(metadata[ingestion.MetaFilePath]); path != "" {
		return path
	}
	return c.FallbackSource
}

// excerpt collapses newlines to spaces and truncates to the configured
// budget, marking the cut with " ...". The cut never splits a rune.
func (c Composer) excerpt(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")
	if c.ExcerptChars > 0 && len(text) > c.ExcerptChars {
		cut := c.ExcerptChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + " ..."
	}
	return text
}
