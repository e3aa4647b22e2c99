package convopipe

import "sort"

// Rank orders documents by score, highest first. The sort is stable:
// documents with equal scores keep their retrieval order. Rank is
// idempotent and does not modify its input.
func Rank(docs []Document) []Document {
	if len(docs) == 0 {
		return nil
	}

	ranked := make([]Document, len(docs))
	copy(ranked, docs)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
