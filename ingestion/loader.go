package ingestion

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
)

// ErrNothingLoaded signals that an entire batch produced zero documents. It
// is a normal outcome for callers to render, distinct from an empty success.
var ErrNothingLoaded = errors.New("no documents loaded")

// SourceStatus classifies what happened to a single source in a batch.
type SourceStatus string

const (
	StatusLoaded  SourceStatus = "loaded"
	StatusSkipped SourceStatus = "skipped"
	StatusFailed  SourceStatus = "failed"
)

// SourceOutcome records the per-source result of a batch load so skip-and-
// continue behavior stays observable instead of disappearing into logs.
type SourceOutcome struct {
	Source    string
	Status    SourceStatus
	Documents int
	Err       error
}

// PageLoader fetches a URL into a raw document.
type PageLoader interface {
	Fetch(ctx context.Context, pageURL string) (RawDocument, error)
}

// Loader turns batches of file paths and URLs into raw documents. Every
// source is processed independently: unsupported suffixes are skipped,
// missing or corrupt sources are reported and excluded, and only an entirely
// empty batch surfaces ErrNothingLoaded.
type Loader struct {
	pages  PageLoader
	logger *log.Logger
}

func NewLoader(pages PageLoader, logger *log.Logger) *Loader {
	if pages == nil {
		pages = NewPageFetcher()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{pages: pages, logger: logger}
}

func (l *Loader) Load(ctx context.Context, files, urls []string) ([]RawDocument, []SourceOutcome, error) {
	docs := make([]RawDocument, 0)
	outcomes := make([]SourceOutcome, 0, len(files)+len(urls))

	for _, file := range files {
		outcome := l.loadFile(file)
		outcomes = append(outcomes, outcome.outcome)
		docs = append(docs, outcome.docs...)
	}

	for _, pageURL := range urls {
		outcome := l.loadURL(ctx, pageURL)
		outcomes = append(outcomes, outcome.outcome)
		docs = append(docs, outcome.docs...)
	}

	if len(docs) == 0 {
		return nil, outcomes, ErrNothingLoaded
	}

	return docs, outcomes, nil
}

type loadResult struct {
	docs    []RawDocument
	outcome SourceOutcome
}

func (l *Loader) loadFile(path string) loadResult {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	format := DetectFormat(abs)
	parse := parserFor(format)
	if parse == nil {
		return loadResult{outcome: SourceOutcome{Source: abs, Status: StatusSkipped}}
	}

	if _, err := os.Stat(abs); err != nil {
		l.logger.Printf("skip missing file %s: %v", abs, err)
		return loadResult{outcome: SourceOutcome{Source: abs, Status: StatusFailed, Err: err}}
	}

	docs, err := parse(abs)
	if err != nil {
		l.logger.Printf("parse failed for %s: %v", abs, err)
		return loadResult{outcome: SourceOutcome{Source: abs, Status: StatusFailed, Err: err}}
	}

	return loadResult{
		docs:    docs,
		outcome: SourceOutcome{Source: abs, Status: StatusLoaded, Documents: len(docs)},
	}
}

func (l *Loader) loadURL(ctx context.Context, pageURL string) loadResult {
	doc, err := l.pages.Fetch(ctx, pageURL)
	if err != nil {
		l.logger.Printf("fetch failed for %s: %v", pageURL, err)
		return loadResult{outcome: SourceOutcome{Source: pageURL, Status: StatusFailed, Err: err}}
	}

	// Citation consistency: the source must remain the requested URL even if
	// the fetcher followed redirects.
	doc.Metadata[MetaSource] = pageURL

	return loadResult{
		docs:    []RawDocument{doc},
		outcome: SourceOutcome{Source: pageURL, Status: StatusLoaded, Documents: 1},
	}
}
