package indexer

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/kbgraph-mcp/internal/extractor"
	"github.com/dshills/kbgraph-mcp/internal/graph"
	"github.com/dshills/kbgraph-mcp/internal/scanner"
	"github.com/dshills/kbgraph-mcp/internal/storage"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// Config controls indexing concurrency.
type Config struct {
	Concurrency int           // Parallel extraction workers
	FileTimeout time.Duration // Budget per file; extraction past it fails that file only
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		FileTimeout: 30 * time.Second,
	}
}

// Coordinator drives full indexing passes and watch-mode updates: scan,
// extract in parallel, swap the chunk set, rebuild the graph, and record
// run artifacts.
type Coordinator struct {
	scanner   *scanner.Scanner
	extractor *extractor.Extractor
	chunks    *ChunkStore
	graph     *graph.Graph
	artifacts storage.Store
	config    Config
}

// New creates a Coordinator. Pass storage.Discard() when no artifact
// database is configured.
func New(scan *scanner.Scanner, ext *extractor.Extractor, g *graph.Graph, artifacts storage.Store, config Config) *Coordinator {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	if config.FileTimeout <= 0 {
		config.FileTimeout = DefaultConfig().FileTimeout
	}

	return &Coordinator{
		scanner:   scan,
		extractor: ext,
		chunks:    NewChunkStore(),
		graph:     g,
		artifacts: artifacts,
		config:    config,
	}
}

// Chunks returns the live chunk store.
func (c *Coordinator) Chunks() *ChunkStore {
	return c.chunks
}

// Graph returns the live knowledge graph.
func (c *Coordinator) Graph() *graph.Graph {
	return c.graph
}

// IndexAll runs one full pass over the scan root. Per-file failures are
// accumulated, never fatal; only a failed scan of the root itself returns
// an error. The pass is idempotent: chunk ids derive from relative paths,
// so re-running over an unchanged tree converges to the same chunk set.
func (c *Coordinator) IndexAll(ctx context.Context) (*types.IndexingResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	files, err := c.scanner.Scan()
	if err != nil {
		return nil, err
	}

	var processed, failed atomic.Int64
	var mu sync.Mutex
	chunks := make([]*types.KnowledgeChunk, 0, len(files))
	var indexErrs []types.IndexingError

	eg, egCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.config.Concurrency)

	for _, file := range files {
		file := file
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			fileCtx, cancel := context.WithTimeout(egCtx, c.config.FileTimeout)
			defer cancel()

			chunk, extractErr := c.extractor.Extract(fileCtx, c.scanner.Root(), file.Path)

			mu.Lock()
			defer mu.Unlock()
			if extractErr != nil {
				failed.Add(1)
				indexErrs = append(indexErrs, types.IndexingError{Path: file.Path, Message: extractErr.Error()})
				return nil
			}
			processed.Add(1)
			chunks = append(chunks, chunk)
			return nil
		})
	}

	if waitErr := eg.Wait(); waitErr != nil {
		return nil, waitErr
	}

	c.chunks.Replace(chunks)
	c.graph.Build(c.chunks.Snapshot())

	result := &types.IndexingResult{
		RunID:          runID,
		TotalFiles:     len(files),
		ProcessedCount: int(processed.Load()),
		FailedCount:    int(failed.Load()),
		Chunks:         chunks,
		Duration:       time.Since(start),
		Errors:         indexErrs,
	}

	c.recordArtifacts(ctx, start, result)
	return result, nil
}

// recordArtifacts persists the run summary, failure manifest, and graph
// snapshot. Artifact failures are logged, never surfaced to the caller.
func (c *Coordinator) recordArtifacts(ctx context.Context, started time.Time, result *types.IndexingResult) {
	run := &storage.IngestRun{
		ID:         result.RunID,
		RootPath:   c.scanner.Root(),
		StartedAt:  started,
		TotalFiles: result.TotalFiles,
		Processed:  result.ProcessedCount,
		Failed:     result.FailedCount,
		DurationMs: result.Duration.Milliseconds(),
	}
	if err := c.artifacts.RecordRun(ctx, run); err != nil {
		log.Printf("indexer: record run: %v", err)
	}

	manifest := make([]storage.IngestError, 0, len(result.Errors))
	for _, e := range result.Errors {
		manifest = append(manifest, storage.IngestError{RunID: result.RunID, Path: e.Path, Message: e.Message})
	}
	if err := c.artifacts.ReplaceRunErrors(ctx, result.RunID, manifest); err != nil {
		log.Printf("indexer: record failure manifest: %v", err)
	}

	stats := c.graph.Stats()
	snap := &storage.GraphSnapshot{
		Nodes:              stats.Nodes,
		Edges:              stats.Edges,
		Clusters:           stats.Clusters,
		NodeTypes:          stats.NodeTypes,
		AverageConnections: stats.AverageConnections,
		UpdatedAt:          time.Now(),
	}
	if err := c.artifacts.SaveGraphSnapshot(ctx, snap); err != nil {
		log.Printf("indexer: save graph snapshot: %v", err)
	}
}
