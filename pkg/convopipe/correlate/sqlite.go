package correlate

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists thread-to-run assignments to SQLite, so a thread
// keeps its run ID across process restarts. It is suitable for
// single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore creates a new SQLite thread-to-run store.
// The path should be a file path (e.g., "./threads.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS thread_runs (
			thread_id TEXT NOT NULL PRIMARY KEY,
			run_id TEXT NOT NULL,
			assigned_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ResolveOrAssign implements Store. The insert ignores conflicts and the
// follow-up select runs under the same lock, so racing callers for one
// new thread all observe the single row that won.
func (s *SQLiteStore) ResolveOrAssign(threadID, candidate string) (string, error) {
	if threadID == "" {
		return "", ErrEmptyThreadID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	if _, err := s.db.Exec(`
		INSERT INTO thread_runs (thread_id, run_id, assigned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO NOTHING
	`, threadID, candidate, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", fmt.Errorf("assign run: %w", err)
	}

	var runID string
	if err := s.db.QueryRow(`
		SELECT run_id FROM thread_runs WHERE thread_id = ?
	`, threadID).Scan(&runID); err != nil {
		return "", fmt.Errorf("resolve run: %w", err)
	}

	return runID, nil
}

// Delete removes the assignment for a thread.
// Returns nil if the thread has no assignment.
func (s *SQLiteStore) Delete(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM thread_runs WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// Close implements Store. Safe to call multiple times.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
