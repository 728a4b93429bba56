// Package history keeps a SQLite log of completed edit cycles.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS edits (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	journal     TEXT    NOT NULL,
	entry       TEXT    NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	editor_err  TEXT    NOT NULL DEFAULT '',
	plain_bytes INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_edits_journal ON edits(journal, finished_at);
`

// Edit is one edit cycle. EditorErr is empty when the editor exited cleanly.
// Checksum is the SHA-256 of the re-encrypted file, never of the plaintext.
type Edit struct {
	Journal    string
	Entry      string
	StartedAt  time.Time
	FinishedAt time.Time
	EditorErr  string
	PlainBytes int64
	Checksum   string
}

// DB wraps a sql.DB holding the edits table.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the history database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends e.
func (db *DB) Record(ctx context.Context, e Edit) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO edits (journal, entry, started_at, finished_at, editor_err, plain_bytes, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Journal, e.Entry, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), e.EditorErr, e.PlainBytes, e.Checksum)
	if err != nil {
		return fmt.Errorf("history: insert edit: %w", err)
	}
	return nil
}

// Recent returns the latest edits for journal, newest first. A limit of zero
// or less returns every edit.
func (db *DB) Recent(ctx context.Context, journal string, limit int) ([]Edit, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT journal, entry, started_at, finished_at, editor_err, plain_bytes, checksum
		FROM edits
		WHERE journal = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`, journal, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Edit
	for rows.Next() {
		var e Edit
		var started, finished int64
		if err := rows.Scan(&e.Journal, &e.Entry, &started, &finished, &e.EditorErr, &e.PlainBytes, &e.Checksum); err != nil {
			return nil, fmt.Errorf("history: scan edit: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastEdited maps each entry of journal to the finish time of its latest edit.
func (db *DB) LastEdited(ctx context.Context, journal string) (map[string]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT entry, MAX(finished_at) FROM edits WHERE journal = ? GROUP BY entry
	`, journal)
	if err != nil {
		return nil, fmt.Errorf("history: query last edited: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			name string
			ms   int64
		)
		if err := rows.Scan(&name, &ms); err != nil {
			return nil, fmt.Errorf("history: scan last edited: %w", err)
		}
		out[name] = time.UnixMilli(ms)
	}
	return out, rows.Err()
}
