// Package content implements the host content store that receives finished
// records, backed by SQLite. Title is the natural deduplication key: a record
// with an existing non-archived title is never created twice.
package content

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	slug        TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	author_id   INTEGER NOT NULL DEFAULT 0,
	category_id INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'draft',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_title ON records(title);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS record_tags (
	record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	tag_id    INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	UNIQUE(record_id, tag_id)
);
`

// Store is the host-store contract consumed by the parser and coordinator.
type Store interface {
	// FindByTitle returns the first non-archived record with the given
	// title, wrapping apperr.ErrNotFound when none exists.
	FindByTitle(title string) (*Record, error)
	// Create inserts a record and links its tags, returning the new id.
	Create(r *Record) (int64, error)
	// EnsureTag returns the id of the named tag, creating it if missing.
	EnsureTag(name string) (int64, error)
	// Get returns one record by id.
	Get(id int64) (*Record, error)
	// List returns records newest-first with the total count.
	List(limit, offset int) ([]Record, int, error)
	Close() error
}

// DB wraps a sql.DB with record-store operations.
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("content: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("content: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("content: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
