package convopipe

import "strings"

// rolePreamble is the fixed role line prepended to every contextual prompt.
const rolePreamble = "You are an expert HR assistant."

// BuildPrompt constructs the generation prompt for a route.
//
// Small talk sends the raw query with no context injection. Every other
// route builds: the role preamble, a context block of the ranked document
// texts separated by blank lines, and the literal query appended last.
// The context block is built even when docs is empty so that a degraded
// retrieval still produces a well-formed prompt.
func BuildPrompt(route Route, query string, docs []Document) string {
	if route == RouteSmallTalk {
		return query
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	var b strings.Builder
	b.WriteString(rolePreamble)
	b.WriteString("\n\nContext Documents:\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n\nUser Query: ")
	b.WriteString(query)
	return b.String()
}
