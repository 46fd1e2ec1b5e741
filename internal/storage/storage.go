package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IngestRun is the durable summary of one IndexAll pass.
type IngestRun struct {
	ID         string // Run id (uuid), not stable across runs by design
	RootPath   string
	StartedAt  time.Time
	TotalFiles int
	Processed  int
	Failed     int
	DurationMs int64
}

// IngestError is one row of the failure manifest. The manifest is replaced
// on every run that has failures.
type IngestError struct {
	RunID   string
	Path    string
	Message string
}

// QueryAudit is one append-only query log entry.
type QueryAudit struct {
	Timestamp   time.Time
	QueryText   string
	ResultCount int
	DurationMs  int64
	Failed      bool
}

// GraphSnapshot is the persisted graph-metadata artifact.
type GraphSnapshot struct {
	Nodes              int
	Edges              int
	Clusters           int
	NodeTypes          map[types.NodeType]int
	AverageConnections float64
	UpdatedAt          time.Time
}

// Store persists the pipeline's durable artifacts: ingestion summaries,
// failure manifests, the query audit log, and graph-metadata snapshots.
// The chunk set itself is never persisted; it lives in memory for the
// duration of a pass.
type Store interface {
	RecordRun(ctx context.Context, run *IngestRun) error
	ReplaceRunErrors(ctx context.Context, runID string, errs []IngestError) error
	LastRun(ctx context.Context) (*IngestRun, error)
	RunErrors(ctx context.Context, runID string) ([]IngestError, error)

	AppendQueryAudit(ctx context.Context, rec *QueryAudit) error

	SaveGraphSnapshot(ctx context.Context, snap *GraphSnapshot) error
	LatestGraphSnapshot(ctx context.Context) (*GraphSnapshot, error)

	Close() error
}

// discard is the no-op Store used when durable artifacts are disabled
// (tests, ephemeral runs).
type discard struct{}

// Discard returns a Store that drops every artifact.
func Discard() Store {
	return discard{}
}

func (discard) RecordRun(context.Context, *IngestRun) error { return nil }

func (discard) ReplaceRunErrors(context.Context, string, []IngestError) error { return nil }

func (discard) LastRun(context.Context) (*IngestRun, error) { return nil, ErrNotFound }

func (discard) RunErrors(context.Context, string) ([]IngestError, error) { return nil, nil }

func (discard) AppendQueryAudit(context.Context, *QueryAudit) error { return nil }

func (discard) SaveGraphSnapshot(context.Context, *GraphSnapshot) error { return nil }

func (discard) LatestGraphSnapshot(context.Context) (*GraphSnapshot, error) {
	return nil, ErrNotFound
}

func (discard) Close() error { return nil }
