package convopipe

import "strings"

// Token sets for intent classification. Matching is substring-based, not
// word-boundary: "hint" matches the "hi" token because "hi" appears as a
// literal substring. Existing callers depend on these outcomes, so the
// matching semantics must not be tightened without a new Route value.
var (
	greetingTokens  = []string{"hello", "hi", "hey", "good morning", "good evening"}
	knowledgeTokens = []string{"policy", "doc", "troubleshoot", "procedure", "guide"}
)

// Classify maps a query to a route. Pure and total: it has no side
// effects, never fails, and defaults to RouteGeneral for unmatched input.
//
// Greeting tokens win over knowledge tokens when both appear.
func Classify(query string) Route {
	q := strings.ToLower(query)

	for _, tok := range greetingTokens {
		if strings.Contains(q, tok) {
			return RouteSmallTalk
		}
	}

	for _, tok := range knowledgeTokens {
		if strings.Contains(q, tok) {
			return RouteRetrieve
		}
	}

	return RouteGeneral
}
