package correlate

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory thread-to-run store.
// Assignments are lost when the process exits; a resumed thread then
// simply starts a new run.
//
// By default entries are never evicted, matching the append-only
// correlation table this store replaces. Long-running deployments with
// unbounded thread churn should opt in to expiry with WithTTL.
type MemoryStore struct {
	mu     sync.Mutex
	runs   map[string]entry
	ttl    time.Duration
	now    func() time.Time
	closed bool
}

type entry struct {
	runID      string
	assignedAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL enables lazy expiry: an assignment older than d is discarded
// on access and the thread gets a fresh run ID. Zero or negative d keeps
// entries forever.
func WithTTL(d time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		m.ttl = d
	}
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore creates a new in-memory thread-to-run store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		runs: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveOrAssign implements Store. The read-check-write runs under one
// lock, so concurrent calls for the same new thread cannot mint two
// different run IDs.
func (m *MemoryStore) ResolveOrAssign(threadID, candidate string) (string, error) {
	if threadID == "" {
		return "", ErrEmptyThreadID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	if e, ok := m.runs[threadID]; ok {
		if m.ttl <= 0 || m.now().Sub(e.assignedAt) < m.ttl {
			return e.runID, nil
		}
		// Expired: fall through and reassign.
	}

	m.runs[threadID] = entry{runID: candidate, assignedAt: m.now()}
	return candidate, nil
}

// Len returns the number of tracked threads.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// Close implements Store. Further calls return ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.runs = nil
	return nil
}
