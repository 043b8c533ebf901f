package sqlite

import (
	"database/sql"
	"fmt"
)

// Meta schema shared by every database file. Collection tables themselves
// are created on demand by EnsureCollection; the registry records which
// collections exist and the vector dimensionality they were created with.
// Version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collections (
    name        TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    vector_dim  INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`,
	},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// DDL templates for the two collection layouts. Timestamps are stored as
// UTC unix nanoseconds so range filters are plain integer comparisons.
const entryTableDDL = `
CREATE TABLE IF NOT EXISTS %[1]q (
    id           TEXT PRIMARY KEY,
    ts           INTEGER NOT NULL,
    service_name TEXT NOT NULL,
    host_ip      TEXT NOT NULL DEFAULT '',
    host_name    TEXT NOT NULL DEFAULT '',
    log_level    TEXT NOT NULL,
    message      TEXT NOT NULL,
    component    TEXT NOT NULL DEFAULT '',
    thread_id    TEXT NOT NULL DEFAULT '',
    request_id   TEXT NOT NULL DEFAULT '',
    error_code   TEXT NOT NULL DEFAULT '',
    duration_ms  REAL,
    tags         TEXT NOT NULL DEFAULT '[]',
    metadata     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS %[2]q ON %[1]q(ts DESC);
CREATE INDEX IF NOT EXISTS %[3]q ON %[1]q(service_name, log_level);
`

const embeddingTableDDL = `
CREATE TABLE IF NOT EXISTS %[1]q (
    id             TEXT PRIMARY KEY,
    log_entry_id   TEXT NOT NULL,
    ts             INTEGER NOT NULL,
    service_name   TEXT NOT NULL,
    host_ip        TEXT NOT NULL DEFAULT '',
    log_level      TEXT NOT NULL,
    content        TEXT NOT NULL,
    summary        TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT 'unknown',
    severity_score REAL NOT NULL DEFAULT 0,
    degraded       INTEGER NOT NULL DEFAULT 0,
    vector         BLOB
);
CREATE INDEX IF NOT EXISTS %[2]q ON %[1]q(ts DESC);
CREATE INDEX IF NOT EXISTS %[3]q ON %[1]q(service_name, log_level);
CREATE VIRTUAL TABLE IF NOT EXISTS %[4]q USING fts5(record_id UNINDEXED, content, summary);
`
