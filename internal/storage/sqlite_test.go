package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndLastRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	run := &IngestRun{
		ID:         "run-1",
		RootPath:   "/tmp/project",
		StartedAt:  time.Now().Add(-time.Minute),
		TotalFiles: 10,
		Processed:  9,
		Failed:     1,
		DurationMs: 1200,
	}
	require.NoError(t, store.RecordRun(ctx, run))

	later := *run
	later.ID = "run-2"
	later.StartedAt = time.Now()
	later.Failed = 0
	require.NoError(t, store.RecordRun(ctx, &later))

	got, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.ID)
	assert.Equal(t, 0, got.Failed)
	assert.Equal(t, int64(1200), got.DurationMs)
}

func TestReplaceRunErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []IngestError{
		{RunID: "run-1", Path: "a.md", Message: "permission denied"},
		{RunID: "run-1", Path: "b.ts", Message: "timeout"},
	}
	require.NoError(t, store.ReplaceRunErrors(ctx, "run-1", first))

	got, err := store.RunErrors(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// The manifest is replaced wholesale on the next run.
	require.NoError(t, store.ReplaceRunErrors(ctx, "run-2", []IngestError{
		{RunID: "run-2", Path: "c.sql", Message: "read error"},
	}))

	stale, err := store.RunErrors(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := store.RunErrors(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "c.sql", fresh[0].Path)
}

func TestReplaceRunErrorsEmptyClearsManifest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceRunErrors(ctx, "run-1", []IngestError{
		{RunID: "run-1", Path: "a.md", Message: "boom"},
	}))
	require.NoError(t, store.ReplaceRunErrors(ctx, "run-2", nil))

	got, err := store.RunErrors(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendQueryAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendQueryAudit(ctx, &QueryAudit{
		Timestamp:   time.Now(),
		QueryText:   "database migrations",
		ResultCount: 3,
		DurationMs:  12,
	}))
	require.NoError(t, store.AppendQueryAudit(ctx, &QueryAudit{
		Timestamp: time.Now(),
		QueryText: "broken",
		Failed:    true,
	}))
}

func TestGraphSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LatestGraphSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := &GraphSnapshot{
		Nodes:    4,
		Edges:    3,
		Clusters: 2,
		NodeTypes: map[types.NodeType]int{
			types.NodeDoc:    2,
			types.NodeScript: 2,
		},
		AverageConnections: 1.5,
		UpdatedAt:          time.Now(),
	}
	require.NoError(t, store.SaveGraphSnapshot(ctx, snap))

	got, err := store.LatestGraphSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Nodes)
	assert.Equal(t, 3, got.Edges)
	assert.Equal(t, 2, got.Clusters)
	assert.Equal(t, 2, got.NodeTypes[types.NodeDoc])
	assert.InDelta(t, 1.5, got.AverageConnections, 1e-9)
}

func TestDiscardStore(t *testing.T) {
	store := Discard()
	ctx := context.Background()

	assert.NoError(t, store.RecordRun(ctx, &IngestRun{ID: "x"}))
	assert.NoError(t, store.AppendQueryAudit(ctx, &QueryAudit{}))

	_, err := store.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Close())
}
