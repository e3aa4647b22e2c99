package convopipe

import "fmt"

// Route is the categorical decision produced by intent classification.
// It determines which pipeline branch executes.
type Route int

// Route values. RouteGeneral is the zero value and the classifier default.
const (
	// RouteGeneral handles queries that are neither greetings nor
	// knowledge-seeking. Answered directly, without retrieval.
	RouteGeneral Route = iota

	// RouteSmallTalk handles greetings. The raw query is sent to the
	// generator with no context injection.
	RouteSmallTalk

	// RouteRetrieve handles knowledge-seeking queries. The pipeline
	// retrieves and ranks documents before generating the answer.
	RouteRetrieve
)

// String returns the route name.
func (r Route) String() string {
	switch r {
	case RouteSmallTalk:
		return "small_talk"
	case RouteRetrieve:
		return "retrieve"
	case RouteGeneral:
		return "general"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// Message roles for ChatMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in the conversation log.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is a retrieved knowledge-base chunk with its relevance score.
// Within a ranked sequence, scores are non-increasing and ties preserve
// retrieval order.
type Document struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ConversationState is the record threaded through the pipeline.
//
// Query is immutable once set for a run. Route is set exactly once by
// classification. Documents is populated only on the retrieve branch and
// never mutated after ranking. Messages is append-only: it starts as the
// caller-provided history and a successful run appends exactly one
// assistant entry. A failed run leaves it untouched.
type ConversationState struct {
	Query     string        `json:"query"`
	Route     Route         `json:"route"`
	Documents []Document    `json:"documents,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	RunID     string        `json:"run_id"`
}
