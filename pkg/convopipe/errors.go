package convopipe

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline construction.
var (
	// ErrNilGenerator indicates New() was called without a text generator.
	ErrNilGenerator = errors.New("text generator cannot be nil")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrEmptyQuery indicates Run() was called with an empty query.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// Sentinel errors for collaborator failures.
var (
	// ErrRetrievalUnavailable indicates the similarity-search collaborator
	// failed. Recovered locally: the run continues with zero documents.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrRetrievalTimeout indicates the similarity-search collaborator
	// exceeded its deadline. Same degrade policy as ErrRetrievalUnavailable.
	ErrRetrievalTimeout = errors.New("retrieval timed out")

	// ErrGenerationFailed indicates the text-generation collaborator
	// failed. Not recoverable: the run aborts with no assistant message.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrGenerationTimeout indicates the text-generation collaborator
	// exceeded its deadline. Same abort policy as ErrGenerationFailed.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// FallbackMessage is a generic user-facing reply for aborted runs.
// Callers should present this instead of leaking internal error detail
// when Run returns a generation error.
const FallbackMessage = "I'm sorry, I encountered an issue while processing your request. Please try again."

// StageError wraps an error with the pipeline stage that produced it.
type StageError struct {
	// Stage is the stage name ("classify", "retrieve", "rank", "respond").
	Stage string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Err
}
