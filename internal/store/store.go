// Package store provides the SQLite-backed ingestion journal. Every ingest
// or extraction attempt is recorded with its outcome so operators can audit
// what the server processed across restarts. The journal is an audit trail
// only: the document index itself lives in memory (or Qdrant) and is not
// restored from it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Operation identifies what was attempted on a source.
type Operation string

const (
	// OpIngest is a chunk, summarize and index run.
	OpIngest Operation = "ingest"
	// OpExtract is a plain text extraction without indexing.
	OpExtract Operation = "extract"
)

// Outcome is the result of a journalled operation.
type Outcome string

const (
	// OutcomeOK marks a successful operation.
	OutcomeOK Outcome = "ok"
	// OutcomeError marks a failed operation.
	OutcomeError Outcome = "error"
)

// Entry is one journalled operation.
type Entry struct {
	// ID is a random UUID assigned by Record when empty.
	ID string
	// Operation is ingest or extract.
	Operation Operation
	// Source is the path or URL that was processed.
	Source string
	// SourceKind is "file" or "url".
	SourceKind string
	// Pages is the page selection, empty for all pages.
	Pages string
	// Chunks is the number of chunks added (ingest only).
	Chunks int
	// Outcome is ok or error.
	Outcome Outcome
	// Error holds the failure message when Outcome is error.
	Error string
	// Duration is the wall-clock time of the operation.
	Duration time.Duration
	// CreatedAt is set by Record when zero.
	CreatedAt time.Time
}

// Journal persists and lists ingestion entries. Implementations must be
// safe for concurrent use.
type Journal interface {
	// Record persists one entry.
	Record(ctx context.Context, e Entry) error
	// Recent returns up to n entries, newest first. A non-empty source
	// restricts the listing to that source.
	Recent(ctx context.Context, source string, n int) ([]Entry, error)
	// Close releases any resources held by the journal.
	Close() error
}

// SQLiteJournal is a Journal backed by a local SQLite database.
type SQLiteJournal struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default journal path, ~/.pdfrag/journal.db,
// creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".pdfrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "journal.db"), nil
}

// Open opens (or creates) a SQLiteJournal at path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteJournal, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single connection: avoids SQLITE_BUSY and keeps ":memory:" on one database.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// migrate creates the schema if it does not already exist.
func (j *SQLiteJournal) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestions (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT    NOT NULL UNIQUE,
    operation    TEXT    NOT NULL CHECK(operation IN ('ingest','extract')),
    source       TEXT    NOT NULL,
    source_kind  TEXT    NOT NULL,
    pages        TEXT    NOT NULL DEFAULT '',
    chunks       INTEGER NOT NULL DEFAULT 0,
    outcome      TEXT    NOT NULL CHECK(outcome IN ('ok','error')),
    error        TEXT    NOT NULL DEFAULT '',
    duration_ms  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (milliseconds)
);
CREATE INDEX IF NOT EXISTS idx_ingestions_source_created
    ON ingestions (source, created_at);
`
	if _, err := j.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists e, filling ID and CreatedAt when unset.
func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO ingestions (id, operation, source, source_kind, pages, chunks, outcome, error, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, q,
		e.ID, string(e.Operation), e.Source, e.SourceKind, e.Pages, e.Chunks,
		string(e.Outcome), e.Error, e.Duration.Milliseconds(), e.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, source string, n int) ([]Entry, error) {
	const q = `
SELECT id, operation, source, source_kind, pages, chunks, outcome, error, duration_ms, created_at
FROM   ingestions
WHERE  (? = '' OR source = ?)
ORDER  BY created_at DESC, seq DESC
LIMIT  ?`

	rows, err := j.db.QueryContext(ctx, q, source, source, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e              Entry
			op, outcome    string
			durMS, created int64
		)
		if err := rows.Scan(&e.ID, &op, &e.Source, &e.SourceKind, &e.Pages, &e.Chunks, &outcome, &e.Error, &durMS, &created); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.Operation = Operation(op)
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}

// Close releases the database connection pool.
func (j *SQLiteJournal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
