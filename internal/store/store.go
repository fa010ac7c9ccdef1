// Package store persists uploaded file records and dashboards in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	file_name  TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	file_size  INTEGER NOT NULL,
	mime_type  TEXT,
	sheet_name TEXT NOT NULL DEFAULT '',
	row_count  INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS files_user_created ON files (user_id, created_at);

CREATE TABLE IF NOT EXISTS dashboards (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	name         TEXT NOT NULL,
	description  TEXT,
	file_id      TEXT,
	chart_config TEXT NOT NULL DEFAULT '[]',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS dashboards_user_updated ON dashboards (user_id, updated_at);
`

// Store is the SQLite-backed record store.
type Store struct {
	db  *sql.DB
	now func() time.Time
	ids func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs replaces the record id generator.
func WithIDs(ids func() string) Option {
	return func(s *Store) { s.ids = ids }
}

// Open opens (creating if needed) the database at path and applies the
// schema. path may be ":memory:".
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &PersistenceError{Op: "open", Kind: "database", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Kind: "database", Err: err}
	}
	// A single connection keeps :memory: databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "open", Kind: "database", Err: fmt.Errorf("ping failed: %w", err)}
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "open", Kind: "database", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "migrate", Kind: "database", Err: err}
	}

	s := &Store{db: db, now: time.Now, ids: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) stamp() int64 {
	return s.now().UTC().UnixNano()
}

func fromStamp(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
