// Package correlate maps conversation-thread identifiers to stable run
// identifiers, so that every turn of a multi-turn dialogue shows up in
// external trace systems as one correlated run instead of N disconnected
// ones.
package correlate

import "errors"

// Store persists thread-to-run assignments.
// Implementations must be safe for concurrent use.
type Store interface {
	// ResolveOrAssign returns the run ID recorded for threadID, assigning
	// candidate atomically if the thread is unknown. When two callers race
	// on the same new thread, both receive the single winning run ID.
	ResolveOrAssign(threadID, candidate string) (string, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("thread store closed")

	// ErrEmptyThreadID indicates ResolveOrAssign was called without a thread.
	ErrEmptyThreadID = errors.New("thread ID cannot be empty")
)
