// Package audit keeps a local, append-only trail of invocations in a
// SQLite file. The trail is operational forensics for a server whose
// callers are conversational clients: what ran, with what risk level,
// and how it ended. It never blocks or fails an invocation — recording
// errors are logged and dropped.
package audit

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	operation   TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	risk        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_invocations_operation ON invocations(operation);
`

// Entry is one recorded invocation.
type Entry struct {
	Operation string
	Category  string
	Risk      string
	Status    string
	ErrorKind string
	Duration  time.Duration
	CreatedAt string
}

// Trail is the SQLite-backed invocation log.
type Trail struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or reopens) the trail at path, creating parent
// directories as needed.
func Open(path string, logger *slog.Logger) (*Trail, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit schema: %w", err)
	}

	return &Trail{db: db, logger: logger}, nil
}

// Record appends one entry. Best-effort: a failed insert is logged, the
// invocation it describes already happened.
func (t *Trail) Record(e Entry) {
	_, err := t.db.Exec(
		`INSERT INTO invocations (operation, category, risk, status, error_kind, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Operation, e.Category, e.Risk, e.Status, e.ErrorKind, e.Duration.Milliseconds(),
	)
	if err != nil {
		t.logger.Warn("audit record failed", "operation", e.Operation, "error", err)
	}
}

// Recent returns the latest n entries, newest first.
func (t *Trail) Recent(n int) ([]Entry, error) {
	rows, err := t.db.Query(
		`SELECT operation, category, risk, status, error_kind, duration_ms, created_at
		 FROM invocations ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.Operation, &e.Category, &e.Risk, &e.Status, &e.ErrorKind, &ms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (t *Trail) Close() error {
	return t.db.Close()
}
