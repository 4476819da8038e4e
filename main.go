package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fabfab/rag-agent/config"
	"github.com/fabfab/rag-agent/database"
	"github.com/fabfab/rag-agent/embeddings"
	"github.com/fabfab/rag-agent/ingestion"
	"github.com/fabfab/rag-agent/knowledge"
	"github.com/fabfab/rag-agent/retrieval"
	"github.com/fabfab/rag-agent/search"
	"github.com/fabfab/rag-agent/tools"
	"github.com/fabfab/rag-agent/vectorstore"
)

const documentCollection = "documents"

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "search":
		searchCmd(cfg, logger, os.Args[2:])
	case "status":
		statusCmd(cfg, logger)
	case "web":
		webCmd(cfg, logger, os.Args[2:])
	case "wiki":
		wikiCmd(cfg, logger, os.Args[2:])
	case "arxiv":
		arxivCmd(cfg, logger, os.Args[2:])
	case "kb":
		kbCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	files := flags.String("files", "", "comma-separated file paths (pdf, docx, csv, html, txt, md)")
	urls := flags.String("urls", "", "comma-separated URLs to fetch and index")
	chunkSize := flags.Int("chunk-size", ingestion.DefaultChunkSize, "chunk size in characters")
	chunkOverlap := flags.Int("chunk-overlap", ingestion.DefaultChunkOverlap, "overlap between consecutive chunks")
	query := flags.String("query", "", "optional query to run right after ingesting")
	k := flags.Int("k", retrieval.DefaultK, "number of passages to retrieve for -query")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	docTool, cleanup, err := buildDocumentsTool(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer cleanup()

	report, err := docTool.Ingest(ctx, splitList(*files), splitList(*urls), *chunkSize, *chunkOverlap)
	if err != nil {
		logger.Fatalf("ingest failed: %v", err)
	}

	fmt.Println(report.Message)
	for _, outcome := range report.Outcomes {
		switch outcome.Status {
		case ingestion.StatusLoaded:
			logger.Printf("loaded %s (%d document(s))", outcome.Source, outcome.Documents)
		case ingestion.StatusSkipped:
			logger.Printf("skipped %s (unsupported format)", outcome.Source)
		case ingestion.StatusFailed:
			logger.Printf("failed %s: %v", outcome.Source, outcome.Err)
		}
	}

	if strings.TrimSpace(*query) != "" {
		answer, _, err := docTool.Search(ctx, *query, *k)
		if err != nil {
			logger.Fatalf("search failed: %v", err)
		}
		fmt.Println()
		fmt.Println(answer)
	}
}

func searchCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	query := flags.String("query", "", "question to search the indexed documents with")
	k := flags.Int("k", retrieval.DefaultK, "number of passages to retrieve")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse search flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	docTool, cleanup, err := buildDocumentsTool(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer cleanup()

	answer, citations, err := docTool.Search(ctx, *query, *k)
	if err != nil {
		logger.Fatalf("search failed: %v", err)
	}

	fmt.Println(answer)
	if len(citations) > 0 {
		logger.Printf("%d distinct source(s) cited", len(citations))
	}
}

func statusCmd(cfg config.Config, logger *log.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	docTool, cleanup, err := buildDocumentsTool(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer cleanup()

	status := docTool.Status()
	fmt.Printf("indexed: %t\nchunk_count: %d\n", status.Indexed, status.ChunkCount)
}

func webCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("web", flag.ExitOnError)
	query := flags.String("query", "", "question to answer from live web content")
	count := flags.Int("count", 5, "number of search results to crawl")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse web flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	webTool := tools.NewWeb(search.NewBraveClient(cfg.BraveAPIKey), nil, embedder, logger)
	answer, _, err := webTool.Search(ctx, *query, *count)
	if err != nil {
		logger.Fatalf("web search failed: %v", err)
	}
	fmt.Println(answer)
}

func wikiCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("wiki", flag.ExitOnError)
	query := flags.String("query", "", "question to answer from Wikipedia")
	docs := flags.Int("docs", 3, "number of articles to fetch")
	quick := flags.Bool("quick", false, "return a short summary instead of running retrieval")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse wiki flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	wikiTool := tools.NewWikipedia(nil, embedder, logger)
	if *quick {
		answer, err := wikiTool.Quick(ctx, *query)
		if err != nil {
			logger.Fatalf("wikipedia lookup failed: %v", err)
		}
		fmt.Println(answer)
		return
	}

	answer, _, err := wikiTool.Search(ctx, *query, *docs)
	if err != nil {
		logger.Fatalf("wikipedia search failed: %v", err)
	}
	fmt.Println(answer)
}

func arxivCmd(_ config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("arxiv", flag.ExitOnError)
	query := flags.String("query", "", "arXiv ID or free-text paper query")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse arxiv flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	answer, err := tools.NewArxiv(nil, logger).Lookup(ctx, *query)
	if err != nil {
		logger.Fatalf("arxiv lookup failed: %v", err)
	}
	fmt.Println(answer)
}

func kbCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("kb", flag.ExitOnError)
	query := flags.String("query", "", "question for the fixed knowledge base")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse kb flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	kbTool, err := tools.NewKnowledgeBase(ctx, cfg.KnowledgeBaseURL, nil, embedder, logger)
	if err != nil {
		logger.Fatalf("knowledge base setup: %v", err)
	}

	answer, _, err := kbTool.Search(ctx, *query)
	if err != nil {
		logger.Fatalf("knowledge base search failed: %v", err)
	}
	fmt.Println(answer)
}

// buildDocumentsTool assembles the persistent document pipeline: pgvector
// index when a DSN is configured, in-memory otherwise, plus the optional
// neo4j provenance graph.
func buildDocumentsTool(ctx context.Context, cfg config.Config, logger *log.Logger) (*tools.Documents, func(), error) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("embedder setup: %w", err)
	}

	cleanup := func() {}

	var index vectorstore.Index
	if cfg.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection: %w", err)
		}
		store, err := vectorstore.NewPostgres(ctx, pool, embedder, documentCollection, cfg.Embeddings.Dimension)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres index: %w", err)
		}
		index = store
		cleanup = pool.Close
	} else {
		index = vectorstore.NewMemory(embedder)
		logger.Printf("no POSTGRES_DSN set, using in-memory index (lives for this process only)")
	}

	var provenance tools.ProvenanceRecorder
	if cfg.Neo4jURI != "" {
		driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("neo4j connection: %w", err)
		}
		provenance = knowledge.NewGraph(driver)
		poolCleanup := cleanup
		cleanup = func() {
			_ = driver.Close(ctx)
			poolCleanup()
		}
	}

	loader := ingestion.NewLoader(nil, logger)
	retriever := retrieval.NewRetriever(index, embedder)
	return tools.NewDocuments(loader, index, retriever, provenance, logger), cleanup, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func printUsage() {
	fmt.Println("Usage: rag-agent <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest   Ingest files/URLs into the document index (--files, --urls)")
	fmt.Println("  search   Query the ingested document corpus (--query, --k)")
	fmt.Println("  status   Show whether anything is indexed and how many chunks")
	fmt.Println("  web      Answer a question from live web search results (--query, --count)")
	fmt.Println("  wiki     Answer a question from Wikipedia (--query, --docs, --quick)")
	fmt.Println("  arxiv    Look up a paper on arXiv (--query)")
	fmt.Println("  kb       Query the fixed knowledge-base page (--query)")
}
