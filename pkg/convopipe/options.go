package convopipe

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/convopipe/pkg/convopipe/correlate"
	"github.com/randalmurphal/convopipe/pkg/convopipe/observability"
)

// Default pipeline settings.
const (
	// DefaultTopK is the number of documents requested from the searcher.
	DefaultTopK = 3

	// DefaultSessionName labels session traces.
	DefaultSessionName = "convopipe"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSearcher sets the similarity-search collaborator.
// Without one, retrieve-routed runs degrade to an empty document context.
func WithSearcher(s Searcher) Option {
	return func(p *Pipeline) {
		p.searcher = s
	}
}

// WithTracer sets the trace collector for session and node events.
// Default: no tracing.
func WithTracer(t observability.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no metrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithCorrelator sets the thread-to-run correlator.
// Default: a correlator over a fresh in-memory store.
func WithCorrelator(c *correlate.Correlator) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.correlator = c
		}
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSessionName sets the session name used in traces and logs.
func WithSessionName(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.name = name
		}
	}
}

// WithTopK sets how many documents the searcher is asked for.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithRetrievalTimeout bounds the similarity-search call.
// Zero means no per-stage deadline beyond the run context's own.
func WithRetrievalTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.retrievalTimeout = d
		}
	}
}

// WithGenerationTimeout bounds the text-generation call.
// Zero means no per-stage deadline beyond the run context's own.
func WithGenerationTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.generationTimeout = d
		}
	}
}

// runConfig holds per-run settings.
type runConfig struct {
	threadID string
	user     string
	history  []ChatMessage
}

// RunOption configures a single pipeline run.
type RunOption func(*runConfig)

// WithThreadID correlates this run with a conversation thread.
// Runs sharing a thread ID share one run ID for tracing.
func WithThreadID(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithUser attributes the run to a user in traces and logs.
func WithUser(user string) RunOption {
	return func(c *runConfig) {
		c.user = user
	}
}

// WithHistory seeds the conversation log with prior turns.
// The history is copied; the caller's slice is never modified.
func WithHistory(messages []ChatMessage) RunOption {
	return func(c *runConfig) {
		c.history = messages
	}
}
