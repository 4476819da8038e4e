package tools

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/fabfab/rag-agent/arxiv"
)

const arxivSummaryChars = 200

// ArxivClient looks up papers on arXiv.
type ArxivClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Entry, error)
}

// Arxiv is a quick-lookup tool for paper metadata; it performs no chunking
// or indexing, just a single API call with a capped summary.
type Arxiv struct {
	client ArxivClient
	logger *log.Logger
}

func NewArxiv(client ArxivClient, logger *log.Logger) *Arxiv {
	if logger == nil {
		logger = log.Default()
	}
	if client == nil {
		client = arxiv.NewClient()
	}
	return &Arxiv{client: client, logger: logger}
}

func (t *Arxiv) Lookup(ctx context.Context, query string) (string, error) {
	entries, err := t.client.Search(ctx, query, 1)
	if err != nil {
		return "", fmt.Errorf("arxiv lookup: %w", err)
	}
	if len(entries) == 0 {
		return "No arXiv results found.", nil
	}

	entry := entries[0]
	summary := entry.Summary
	if len(summary) > arxivSummaryChars {
		cut := arxivSummaryChars
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut] + " ..."
	}

	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Published: %s\n", entry.Published)
	fmt.Fprintf(builder, "Title: %s\n", entry.Title)
	if len(entry.Authors) > 0 {
		fmt.Fprintf(builder, "Authors: %s\n", strings.Join(entry.Authors, ", "))
	}
	fmt.Fprintf(builder, "Summary: %s", summary)
	return builder.String(), nil
}
