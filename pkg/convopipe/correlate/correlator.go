package correlate

import "github.com/google/uuid"

// Correlator resolves conversation threads to stable run identifiers.
//
// A thread spans many pipeline invocations; the correlator guarantees
// every invocation for the same thread sees the same run ID. Queries
// without a thread get a fresh run ID each call, since there is nothing
// to correlate on.
type Correlator struct {
	store Store
	newID func() string
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithStore sets the backing thread-to-run store.
// Default: a fresh in-memory store.
func WithStore(store Store) Option {
	return func(c *Correlator) {
		c.store = store
	}
}

// WithIDFunc overrides run ID generation. Default: random UUIDs.
func WithIDFunc(newID func() string) Option {
	return func(c *Correlator) {
		c.newID = newID
	}
}

// New creates a Correlator.
func New(opts ...Option) *Correlator {
	c := &Correlator{
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	return c
}

// ResolveRun returns the run ID for a thread, minting and recording one
// if the thread is new. An empty threadID mints a fresh, unrecorded run
// ID on every call.
func (c *Correlator) ResolveRun(threadID string) (string, error) {
	candidate := c.newID()
	if threadID == "" {
		return candidate, nil
	}
	return c.store.ResolveOrAssign(threadID, candidate)
}

// Close releases the backing store.
func (c *Correlator) Close() error {
	return c.store.Close()
}
