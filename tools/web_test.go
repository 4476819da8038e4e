package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/search"
	"github.com/fabfab/rag-agent/testutil"
)

type fakeSearcher struct {
	results []search.Result
	err     error
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]search.Result, error) {
	return f.results, f.err
}

type fakeFetcher struct {
	pages   map[string]string
	fetches map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (ingestion.RawDocument, error) {
	if f.fetches == nil {
		f.fetches = make(map[string]int)
	}
	f.fetches[pageURL]++

	content, ok := f.pages[pageURL]
	if !ok {
		return ingestion.RawDocument{}, fmt.Errorf("no fixture for %s", pageURL)
	}
	return ingestion.RawDocument{
		Content:  content,
		Metadata: map[string]string{ingestion.MetaSource: pageURL},
	}, nil
}

func TestWebSearchMissingAPIKey(t *testing.T) {
	tool := NewWeb(&fakeSearcher{err: search.ErrMissingAPIKey}, &fakeFetcher{}, &testutil.HashEmbedder{}, quietLogger())

	answer, citations, err := tool.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("a missing key is a signal, not an error: %v", err)
	}
	if answer != "BRAVE_SEARCH_API_KEY is not set." {
		t.Fatalf("answer = %q", answer)
	}
	if citations != nil {
		t.Fatalf("expected no citations, got %v", citations)
	}
}

func TestWebSearchNoResults(t *testing.T) {
	tool := NewWeb(&fakeSearcher{}, &fakeFetcher{}, &testutil.HashEmbedder{}, quietLogger())

	answer, _, err := tool.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if answer != "No web results found." {
		t.Fatalf("answer = %q", answer)
	}
}

func TestWebSearchAllFetchesFail(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "One", Link: "https://example.com/1"},
		{Title: "Two", Link: "https://example.com/2"},
	}}
	tool := NewWeb(searcher, &fakeFetcher{}, &testutil.HashEmbedder{}, quietLogger())

	answer, _, err := tool.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("fetch failures are skipped, not fatal: %v", err)
	}
	if answer != "Failed to load content from the top web results." {
		t.Fatalf("answer = %q", answer)
	}
}

func TestWebSearchWhitespaceOnlyPages(t *testing.T) {
	const link = "https://example.com/blank"
	searcher := &fakeSearcher{results: []search.Result{{Title: "Blank", Link: link}}}
	fetcher := &fakeFetcher{pages: map[string]string{link: "   \n\t  \n"}}
	tool := NewWeb(searcher, fetcher, &testutil.HashEmbedder{}, quietLogger())

	answer, citations, err := tool.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("pages with no chunkable text are a signal, not an error: %v", err)
	}
	if answer != "Failed to load content from the top web results." {
		t.Fatalf("answer = %q", answer)
	}
	if citations != nil {
		t.Fatalf("expected no citations, got %v", citations)
	}
}

func TestWebSearchDedupesLinks(t *testing.T) {
	const link = "https://example.com/article"
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "First hit", Link: link},
		{Title: "Same page again", Link: link},
		{Title: "Empty link skipped", Link: ""},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		link: "Shared article content about distributed consensus protocols.",
	}}
	tool := NewWeb(searcher, fetcher, &testutil.HashEmbedder{}, quietLogger())

	if _, _, err := tool.Search(context.Background(), "distributed consensus", 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fetcher.fetches[link] != 1 {
		t.Fatalf("duplicate link fetched %d times, want 1", fetcher.fetches[link])
	}
}

func TestWebSearchEndToEnd(t *testing.T) {
	const consensusURL = "https://example.com/consensus"
	const cookingURL = "https://example.com/cooking"

	searcher := &fakeSearcher{results: []search.Result{
		{Title: "Consensus", Link: consensusURL},
		{Title: "Cooking", Link: cookingURL},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		consensusURL: "Raft is a consensus algorithm for replicated state machines.",
		cookingURL:   "Slow roasting vegetables brings out their natural sweetness.",
	}}
	tool := NewWeb(searcher, fetcher, &testutil.HashEmbedder{}, quietLogger())

	answer, citations, err := tool.Search(context.Background(), "raft consensus algorithm", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.HasPrefix(answer, "Web RAG answer (supporting snippets):") {
		t.Fatalf("unexpected answer header:\n%s", answer)
	}
	if !strings.Contains(answer, "Raft is a consensus algorithm") {
		t.Fatalf("expected the consensus page excerpt first:\n%s", answer)
	}
	if len(citations) == 0 || citations[0] != consensusURL {
		t.Fatalf("citations = %v, want %q first", citations, consensusURL)
	}
}

func TestWebSearchEmbedFailurePropagates(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{{Link: "https://example.com/p"}}}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/p": "page body"}}
	tool := NewWeb(searcher, fetcher, &testutil.FailingEmbedder{Err: errors.New("provider down")}, quietLogger())

	if _, _, err := tool.Search(context.Background(), "query", 5); err == nil {
		t.Fatal("expected an error when the ephemeral index cannot be built")
	}
}
