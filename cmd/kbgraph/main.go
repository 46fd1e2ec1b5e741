package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/internal/extractor"
	"github.com/dshills/kbgraph-mcp/internal/graph"
	"github.com/dshills/kbgraph-mcp/internal/indexer"
	"github.com/dshills/kbgraph-mcp/internal/mcp"
	"github.com/dshills/kbgraph-mcp/internal/scanner"
	"github.com/dshills/kbgraph-mcp/internal/searcher"
	"github.com/dshills/kbgraph-mcp/internal/storage"
)

const version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "print version and exit")
		root        = flag.String("root", ".", "directory tree to index")
		dbPath      = flag.String("db", "", "artifact database path; empty disables run persistence")
		watch       = flag.Bool("watch", false, "watch the tree and index changes incrementally")
		concurrency = flag.Int("concurrency", 4, "parallel extraction workers")
		cacheSize   = flag.Int("query-cache", 128, "search response cache entries")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("kbgraph %s (sqlite: %s)\n", version, storage.BuildMode)
		return
	}

	// Stdout carries the MCP protocol; everything else goes to stderr.
	log.SetOutput(os.Stderr)

	if err := run(*root, *dbPath, *watch, *concurrency, *cacheSize); err != nil {
		log.Fatalf("kbgraph: %v", err)
	}
}

func run(root, dbPath string, watch bool, concurrency, cacheSize int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()
	log.Printf("embedding provider: %s (%s, %d dims)", emb.Provider(), emb.Model(), emb.Dimension())

	artifacts := storage.Store(storage.Discard())
	if dbPath != "" {
		sqlStore, openErr := storage.NewSQLiteStore(dbPath)
		if openErr != nil {
			return openErr
		}
		defer func() { _ = sqlStore.Close() }()
		artifacts = sqlStore
	}

	scan, err := scanner.New(root, scanner.DefaultConfig())
	if err != nil {
		return err
	}

	cfg := indexer.DefaultConfig()
	cfg.Concurrency = concurrency
	coord := indexer.New(scan, extractor.New(emb), graph.New(), artifacts, cfg)

	result, err := coord.IndexAll(ctx)
	if err != nil {
		return err
	}
	log.Printf("indexed %d/%d files (%d failed) in %s", result.ProcessedCount, result.TotalFiles, result.FailedCount, result.Duration)

	if watch {
		// Watch mode is best effort; a failed watcher leaves full-scan
		// indexing available.
		if watchErr := coord.Watch(ctx); watchErr != nil {
			log.Printf("watch unavailable: %v", watchErr)
		}
	}

	engine := searcher.New(coord.Chunks(), emb, artifacts, cacheSize)
	srv := mcp.NewServer(version, coord, engine, emb, artifacts)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case <-ctx.Done():
		log.Println("shutting down")
		return nil
	case serveErr := <-errCh:
		return serveErr
	}
}
