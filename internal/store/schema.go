// Package store provides the SQLite-backed vector store for note chunks.
//
// Vectors are kept as little-endian float32 BLOBs in a single note_chunks
// table; similarity search is a brute-force cosine scan, which is the
// documented fixed choice for a personal-vault-sized corpus. Scalar columns
// support the equality filters the retrieval tools need (fetch-by-filename,
// delete-by-path).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is stamped on every record written; bump when the row shape
// changes so old records can be migrated or ignored.
const SchemaVersion = 2

const schemaSQL = `
CREATE TABLE IF NOT EXISTS note_chunks (
	id             TEXT PRIMARY KEY,
	filename       TEXT NOT NULL,
	relative_path  TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	content        TEXT NOT NULL DEFAULT '',
	vector         BLOB NOT NULL,
	note_type      TEXT NOT NULL DEFAULT 'general',
	created_date   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'active',
	tags           TEXT NOT NULL DEFAULT '',
	last_modified  INTEGER NOT NULL DEFAULT 0,
	schema_version INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_path ON note_chunks(relative_path);
CREATE INDEX IF NOT EXISTS idx_chunks_filename ON note_chunks(filename);
`

// DB wraps a sql.DB with note-chunk operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the store at path and ensures the schema exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// OpenExisting opens the store only if it has been created before. A store
// that has never been ingested into is an expected state (chat before the
// first index run), so it is reported as (nil, nil) rather than an error.
func OpenExisting(path string) (*DB, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return Open(path)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
