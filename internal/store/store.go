// Package store persists facts, claims, verdicts, and indexed chunks in
// SQLite. Facts and chunks are immutable; verdicts are per-claim-keyed
// upserts so at-most-one-verdict is enforced by the schema, not by locks.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite handle. Safe for concurrent use; SQLite serializes
// writes internally.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker      TEXT NOT NULL,
	metric      TEXT NOT NULL,
	year        INTEGER NOT NULL,
	quarter     INTEGER NOT NULL,
	value       REAL NOT NULL,
	unit        TEXT DEFAULT '',
	source      TEXT DEFAULT '',
	is_gaap     INTEGER NOT NULL DEFAULT 1,
	filing_date DATETIME,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (ticker, metric, year, quarter, is_gaap)
);
CREATE INDEX IF NOT EXISTS idx_facts_lookup ON facts(ticker, metric, year, quarter);

CREATE TABLE IF NOT EXISTS claims (
	id                 TEXT PRIMARY KEY,
	ticker             TEXT NOT NULL,
	year               INTEGER NOT NULL,
	quarter            INTEGER NOT NULL,
	speaker            TEXT DEFAULT '',
	metric             TEXT DEFAULT '',
	value              REAL NOT NULL,
	unit               TEXT DEFAULT '',
	period             TEXT DEFAULT 'unspecified',
	is_gaap            INTEGER NOT NULL DEFAULT 1,
	is_forward_looking INTEGER NOT NULL DEFAULT 0,
	hedged             INTEGER NOT NULL DEFAULT 0,
	raw_text           TEXT DEFAULT '',
	extraction_method  TEXT DEFAULT '',
	confidence         REAL DEFAULT 0,
	context            TEXT DEFAULT '',
	created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_claims_ticker ON claims(ticker, year, quarter);

CREATE TABLE IF NOT EXISTS verdicts (
	claim_id         TEXT PRIMARY KEY REFERENCES claims(id),
	label            TEXT NOT NULL,
	actual_value     REAL,
	claimed_value    REAL NOT NULL,
	difference       REAL,
	explanation      TEXT DEFAULT '',
	misleading_flags TEXT DEFAULT '[]',
	confidence       REAL DEFAULT 0,
	data_sources     TEXT DEFAULT '[]',
	evidence         TEXT DEFAULT '[]',
	created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
	id                  TEXT PRIMARY KEY,
	ticker              TEXT NOT NULL,
	year                INTEGER NOT NULL,
	quarter             INTEGER NOT NULL,
	chunk_type          TEXT NOT NULL,
	metric_type         TEXT DEFAULT '',
	source_type         TEXT DEFAULT '',
	is_gaap             INTEGER,
	text                TEXT NOT NULL,
	sequence_index      INTEGER DEFAULT 0,
	is_analyst_question INTEGER NOT NULL DEFAULT 0,
	dense_embedding     TEXT NOT NULL,
	sparse_embedding    TEXT NOT NULL,
	created_at          DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_filter ON chunks(ticker, year, quarter);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	progress   REAL DEFAULT 0,
	message    TEXT DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// tx runs fn inside a transaction, committing on nil error.
func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
