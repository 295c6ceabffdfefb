package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/starford/ansuz/internal/apperr"
)

// NoteChunk is one persisted retrieval passage of a note.
type NoteChunk struct {
	ID            string // "<relative_path>#<chunk_index>"
	Filename      string
	RelativePath  string
	Title         string
	Content       string // display text, never carries the embedding prefix
	Vector        []float32
	NoteType      string
	CreatedDate   string
	Status        string
	Tags          string // comma-joined
	LastModified  int64  // source file mtime, unix seconds
	SchemaVersion int
}

// SearchHit is a chunk with its similarity score, most similar first.
type SearchHit struct {
	NoteChunk
	Score float64
}

// Filter narrows a search or lookup to rows matching scalar columns.
type Filter struct {
	Filename string
}

// Index defines the store operations consumed by ingestion, chat, and the
// retrieval server.
type Index interface {
	UpsertForPath(relativePath string, records []NoteChunk) error
	Search(queryVector []float32, limit int, filter *Filter) ([]SearchHit, error)
	LookupByFilename(filename string) (*NoteChunk, error)
	Count() (int, error)
	Wipe() error
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)

// UpsertForPath replaces all chunks for a source path with records, inside
// one transaction so no reader observes a path with zero chunks mid-swap.
// An empty records slice removes the note from the index entirely.
func (db *DB) UpsertForPath(relativePath string, records []NoteChunk) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM note_chunks WHERE relative_path = ?`, relativePath); err != nil {
		return fmt.Errorf("store: delete chunks for %s: %w", relativePath, err)
	}

	if len(records) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO note_chunks
			(id, filename, relative_path, title, content, vector,
			 note_type, created_date, status, tags, last_modified, schema_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("store: prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			_, err := stmt.Exec(r.ID, r.Filename, r.RelativePath, r.Title, r.Content,
				encodeVector(r.Vector), r.NoteType, r.CreatedDate, r.Status, r.Tags,
				r.LastModified, r.SchemaVersion)
			if err != nil {
				return fmt.Errorf("store: insert chunk %s: %w", r.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Search runs a brute-force cosine scan over all rows (optionally filtered)
// and returns the limit most similar chunks.
func (db *DB) Search(queryVector []float32, limit int, filter *Filter) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `SELECT id, filename, relative_path, title, content, vector,
		note_type, created_date, status, tags, last_modified, schema_version
		FROM note_chunks`
	var args []any
	if filter != nil && filter.Filename != "" {
		query += ` WHERE filename = ?`
		args = append(args, filter.Filename)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search scan: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		chunk, vec, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunk.Vector = vec
		hits = append(hits, SearchHit{
			NoteChunk: chunk,
			Score:     cosineSimilarity(queryVector, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: search rows: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// LookupByFilename returns one chunk for the given base filename, or
// apperr.ErrNotFound when the file is not indexed. Used by the retrieval
// server to resolve a filename back to its vault path.
func (db *DB) LookupByFilename(filename string) (*NoteChunk, error) {
	row := db.conn.QueryRow(`SELECT id, filename, relative_path, title, content, vector,
		note_type, created_date, status, tags, last_modified, schema_version
		FROM note_chunks WHERE filename = ? LIMIT 1`, filename)

	chunk, vec, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	chunk.Vector = vec
	return &chunk, nil
}

// Count returns the number of indexed chunks.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM note_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Wipe removes every row. Used by `index --force` before a full re-ingest.
func (db *DB) Wipe() error {
	if _, err := db.conn.Exec(`DELETE FROM note_chunks`); err != nil {
		return fmt.Errorf("store: wipe: %w", err)
	}
	return nil
}

// ChunkIDsForPath returns the ids currently stored for a path, in insertion
// order.
func (db *DB) ChunkIDsForPath(relativePath string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM note_chunks WHERE relative_path = ? ORDER BY id`, relativePath)
	if err != nil {
		return nil, fmt.Errorf("store: ids for path: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(r rowScanner) (NoteChunk, []float32, error) {
	var c NoteChunk
	var blob []byte
	err := r.Scan(&c.ID, &c.Filename, &c.RelativePath, &c.Title, &c.Content, &blob,
		&c.NoteType, &c.CreatedDate, &c.Status, &c.Tags, &c.LastModified, &c.SchemaVersion)
	if err != nil {
		return NoteChunk{}, nil, err
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return NoteChunk{}, nil, err
	}
	return c, vec, nil
}
