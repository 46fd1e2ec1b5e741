package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// SQLiteStore persists artifacts in a single SQLite database. The driver
// is selected at build time (see build_purego.go / build_cgo.go).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the artifact database at path.
// Use ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open artifact db: %w", err)
	}

	// Serialized access keeps the watch-mode writer and query auditing
	// from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate artifact db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts one ingestion summary row.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *IngestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, root_path, started_at, total_files, processed, failed, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RootPath, run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.TotalFiles, run.Processed, run.Failed, run.DurationMs)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ReplaceRunErrors overwrites the failure manifest with the errors of the
// given run.
func (s *SQLiteStore) ReplaceRunErrors(ctx context.Context, runID string, errs []IngestError) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manifest tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingest_errors`); err != nil {
		return fmt.Errorf("clear manifest: %w", err)
	}

	for _, e := range errs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingest_errors (run_id, path, message) VALUES (?, ?, ?)`,
			runID, e.Path, e.Message); err != nil {
			return fmt.Errorf("insert manifest row: %w", err)
		}
	}

	return tx.Commit()
}

// LastRun returns the most recent ingestion summary.
func (s *SQLiteStore) LastRun(ctx context.Context) (*IngestRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, root_path, started_at, total_files, processed, failed, duration_ms
		 FROM ingest_runs ORDER BY started_at DESC LIMIT 1`)

	var run IngestRun
	var startedAt string
	err := row.Scan(&run.ID, &run.RootPath, &startedAt, &run.TotalFiles, &run.Processed, &run.Failed, &run.DurationMs)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	return &run, nil
}

// RunErrors returns the failure manifest rows for a run.
func (s *SQLiteStore) RunErrors(ctx context.Context, runID string) ([]IngestError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, path, message FROM ingest_errors WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("run errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var errs []IngestError
	for rows.Next() {
		var e IngestError
		if err := rows.Scan(&e.RunID, &e.Path, &e.Message); err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// AppendQueryAudit appends one query log entry.
func (s *SQLiteStore) AppendQueryAudit(ctx context.Context, rec *QueryAudit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_audit (ts, query_text, result_count, duration_ms, failed)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.QueryText, rec.ResultCount, rec.DurationMs, rec.Failed)
	if err != nil {
		return fmt.Errorf("append query audit: %w", err)
	}
	return nil
}

// SaveGraphSnapshot inserts a graph-metadata snapshot row.
func (s *SQLiteStore) SaveGraphSnapshot(ctx context.Context, snap *GraphSnapshot) error {
	dist, err := json.Marshal(snap.NodeTypes)
	if err != nil {
		return fmt.Errorf("marshal type distribution: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graph_meta (nodes, edges, clusters, node_types, avg_connections, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Nodes, snap.Edges, snap.Clusters, string(dist), snap.AverageConnections,
		snap.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save graph snapshot: %w", err)
	}
	return nil
}

// LatestGraphSnapshot returns the most recent graph-metadata snapshot.
func (s *SQLiteStore) LatestGraphSnapshot(ctx context.Context) (*GraphSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT nodes, edges, clusters, node_types, avg_connections, updated_at
		 FROM graph_meta ORDER BY updated_at DESC LIMIT 1`)

	var snap GraphSnapshot
	var dist, updatedAt string
	err := row.Scan(&snap.Nodes, &snap.Edges, &snap.Clusters, &dist, &snap.AverageConnections, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest graph snapshot: %w", err)
	}

	snap.NodeTypes = make(map[types.NodeType]int)
	if err := json.Unmarshal([]byte(dist), &snap.NodeTypes); err != nil {
		return nil, fmt.Errorf("unmarshal type distribution: %w", err)
	}
	snap.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &snap, nil
}
