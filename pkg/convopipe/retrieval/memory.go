// Package retrieval provides similarity-search adapters for the
// pipeline: a Qdrant-backed vector searcher with an Ollama embedder, and
// an in-memory keyword index for tests and small deployments.
package retrieval

import (
	"context"
	"strings"
	"sync"

	"github.com/randalmurphal/convopipe/pkg/convopipe"
)

// MemoryIndex is a keyword-overlap document index.
// It scores a document by the fraction of query terms appearing in its
// text. Deterministic: equal inputs always produce the same order, with
// ties resolved by insertion order.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs []convopipe.Document
}

// Compile-time interface check.
var _ convopipe.Searcher = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add inserts a document. IDs are not deduplicated; callers own ID
// uniqueness.
func (m *MemoryIndex) Add(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, convopipe.Document{ID: id, Text: text})
}

// Len returns the number of indexed documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Query implements convopipe.Searcher. Documents with no matching term
// are omitted; at most k documents are returned, best match first.
func (m *MemoryIndex) Query(ctx context.Context, text string, k int) ([]convopipe.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(text))
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]convopipe.Document, 0, len(m.docs))
	for _, d := range m.docs {
		hay := strings.ToLower(d.Text)
		matches := 0
		for _, term := range terms {
			if strings.Contains(hay, term) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		scored = append(scored, convopipe.Document{
			ID:    d.ID,
			Text:  d.Text,
			Score: float64(matches) / float64(len(terms)),
		})
	}

	ranked := convopipe.Rank(scored)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}
