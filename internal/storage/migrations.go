package storage

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion is bumped whenever migrations gains a new entry.
const CurrentSchemaVersion = 1

// migrations are applied in order; each entry is one schema version.
var migrations = []string{
	// v1: artifact tables
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		root_path   TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		total_files INTEGER NOT NULL,
		processed   INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ingest_errors (
		run_id  TEXT NOT NULL,
		path    TEXT NOT NULL,
		message TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS query_audit (
		ts           TEXT NOT NULL,
		query_text   TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		duration_ms  INTEGER NOT NULL,
		failed       INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS graph_meta (
		nodes           INTEGER NOT NULL,
		edges           INTEGER NOT NULL,
		clusters        INTEGER NOT NULL,
		node_types      TEXT NOT NULL,
		avg_connections REAL NOT NULL,
		updated_at      TEXT NOT NULL
	);`,
}

// migrate brings the schema up to CurrentSchemaVersion.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("apply migration %d: %w", v+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, v+1); err != nil {
			return fmt.Errorf("record migration %d: %w", v+1, err)
		}
	}

	return nil
}
