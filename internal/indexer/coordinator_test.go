package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/internal/extractor"
	"github.com/dshills/kbgraph-mcp/internal/graph"
	"github.com/dshills/kbgraph-mcp/internal/scanner"
	"github.com/dshills/kbgraph-mcp/internal/storage"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestCoordinator(t *testing.T, root string, artifacts storage.Store) *Coordinator {
	t.Helper()
	scan, err := scanner.New(root, scanner.DefaultConfig())
	require.NoError(t, err)

	ext := extractor.New(embedder.NewHashProvider(nil))
	return New(scan, ext, graph.New(), artifacts, DefaultConfig())
}

func TestIndexAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# Setup\nThe database requires migrations.\n")
	writeFile(t, dir, "b.ts", "import { helper } from './a'\n")
	writeFile(t, dir, filepath.Join("node_modules", "c.js"), "ignored\n")

	coord := newTestCoordinator(t, dir, storage.Discard())

	result, err := coord.IndexAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, coord.Chunks().Len())

	// The graph rebuild ran: b imports a.
	node := coord.Graph().Node(types.ChunkID("b.ts"))
	require.NotNil(t, node)
	assert.Contains(t, node.Connections, types.ChunkID("a.md"))
}

func TestIndexAllIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\n")
	writeFile(t, dir, "b.md", "# B\n")

	coord := newTestCoordinator(t, dir, storage.Discard())
	ctx := context.Background()

	first, err := coord.IndexAll(ctx)
	require.NoError(t, err)
	second, err := coord.IndexAll(ctx)
	require.NoError(t, err)

	// Re-running over an unchanged tree converges: same counts, same ids,
	// but run ids stay unique.
	assert.Equal(t, first.ProcessedCount, second.ProcessedCount)
	assert.Equal(t, 2, coord.Chunks().Len())
	assert.NotEqual(t, first.RunID, second.RunID)

	a1, ok := coord.Chunks().Get(types.ChunkID("a.md"))
	require.True(t, ok)
	assert.Equal(t, types.ChunkID("a.md"), a1.ID)
}

func TestIndexAllMissingRoot(t *testing.T) {
	_, err := scanner.New(filepath.Join(t.TempDir(), "nope"), scanner.DefaultConfig())
	assert.Error(t, err)
}

func TestIndexAllRecordsArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\n")

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	coord := newTestCoordinator(t, dir, store)
	ctx := context.Background()

	result, err := coord.IndexAll(ctx)
	require.NoError(t, err)

	run, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, run.ID)
	assert.Equal(t, 1, run.TotalFiles)
	assert.Equal(t, 1, run.Processed)

	snap, err := store.LatestGraphSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Nodes)
}

func TestChunkStore(t *testing.T) {
	store := NewChunkStore()
	assert.Equal(t, 0, store.Len())

	a := &types.KnowledgeChunk{ID: "1", Metadata: types.ChunkMetadata{Path: "a.md"}}
	b := &types.KnowledgeChunk{ID: "2", Metadata: types.ChunkMetadata{Path: "b.md"}}
	store.Replace([]*types.KnowledgeChunk{a, b})
	assert.Equal(t, 2, store.Len())

	// Put merges by id.
	store.Put(&types.KnowledgeChunk{ID: "2", Metadata: types.ChunkMetadata{Path: "b.md"}, Category: types.CategoryCode})
	got, ok := store.Get("2")
	require.True(t, ok)
	assert.Equal(t, types.CategoryCode, got.Category)

	// Replace swaps wholesale.
	store.Replace([]*types.KnowledgeChunk{a})
	assert.Equal(t, 1, store.Len())
	_, ok = store.Get("2")
	assert.False(t, ok)
}

func TestChunkStoreSnapshotIsCopy(t *testing.T) {
	store := NewChunkStore()
	store.Put(&types.KnowledgeChunk{
		ID:       "1",
		Metadata: types.ChunkMetadata{Path: "a.md"},
		Tags:     []string{"kind:md"},
	})

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Tags[0] = "mutated"

	got, ok := store.Get("1")
	require.True(t, ok)
	assert.Equal(t, "kind:md", got.Tags[0])
}

func TestChunkStoreSnapshotOrdered(t *testing.T) {
	store := NewChunkStore()
	store.Put(&types.KnowledgeChunk{ID: "2", Metadata: types.ChunkMetadata{Path: "z.md"}})
	store.Put(&types.KnowledgeChunk{ID: "1", Metadata: types.ChunkMetadata{Path: "a.md"}})

	snap := store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a.md", snap[0].Metadata.Path)
	assert.Equal(t, "z.md", snap[1].Metadata.Path)
}
