// Package session persists a run history for the lox CLI/REPL: one row per
// Interpret call, recording the source, the outcome, and how long it took.
// It is grounded on the teacher's direct database/sql + modernc.org/sqlite
// usage in internal/vm/vm.go's sqlite_open/sqlite_exec native functions,
// repurposed here as ambient CLI infrastructure rather than a scriptable
// native function (the spec's Lox dialect has no function-call surface to
// host natives on).
package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite-backed history of Interpret calls for one process.
// RunID tags every row with a single uuid generated at Store creation, so
// rows from concurrent lox processes sharing a history file can be told
// apart.
type Store struct {
	db    *sql.DB
	RunID string
}

// Open creates (or reuses) the sqlite file at path and ensures the history
// table exists. An empty path opens an in-memory database; callers that
// want a persistent file (the common case) pass a resolved path, falling
// back to in-memory only when no sensible path can be determined.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: opening %s: %w", dsn, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: pinging %s: %w", dsn, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	source      TEXT NOT NULL,
	result      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: creating schema: %w", err)
	}

	return &Store{db: db, RunID: uuid.New().String()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one row describing a completed Interpret call.
func (s *Store) Record(source string, result string, elapsed time.Duration) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, source, result, duration_ms) VALUES (?, ?, ?, ?)`,
		s.RunID, source, result, elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("session: recording run: %w", err)
	}
	return nil
}

// Entry is one row of run history, as returned by Recent.
type Entry struct {
	Source     string
	Result     string
	DurationMs int64
	CreatedAt  time.Time
}

// Recent returns up to limit most recent rows, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT source, result, duration_ms, created_at FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("session: querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Source, &e.Result, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("session: scanning row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
