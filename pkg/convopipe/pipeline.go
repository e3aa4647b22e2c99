package convopipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/convopipe/pkg/convopipe/correlate"
	"github.com/randalmurphal/convopipe/pkg/convopipe/observability"
)

// Searcher is the similarity-search capability consumed by the pipeline.
// Implementations must return documents in a deterministic order for
// identical inputs so that ranking output is reproducible.
type Searcher interface {
	// Query returns up to k candidate documents for the text.
	Query(ctx context.Context, text string, k int) ([]Document, error)
}

// Generator is the text-generation capability consumed by the pipeline.
type Generator interface {
	// Complete produces assistant text for a prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, text string, k int) ([]Document, error)

// Query implements Searcher.
func (f SearcherFunc) Query(ctx context.Context, text string, k int) ([]Document, error) {
	return f(ctx, text, k)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Generator.
func (f GeneratorFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Stage names, used in traces, logs, metrics, and StageError.
const (
	StageClassify = "classify"
	StageRetrieve = "retrieve"
	StageRank     = "rank"
	StageRespond  = "respond"
)

// stage is the pipeline execution state.
// Transitions are strictly linear with one conditional fork at
// stageClassified; no stage re-executes within a run.
type stage int

const (
	stageStart stage = iota
	stageClassified
	stageRetrieved
	stageRanked
	stageResponded
	stageDone
)

// Pipeline sequences the four decision stages for a conversational query:
// intent classification, knowledge retrieval, relevance ranking, and
// response generation.
//
// A Pipeline is immutable after New and safe for concurrent Run calls.
// Concurrent runs share only the correlator's thread-to-run store.
type Pipeline struct {
	generator  Generator
	searcher   Searcher
	tracer     observability.Tracer
	metrics    observability.MetricsRecorder
	correlator *correlate.Correlator
	logger     *slog.Logger
	name       string
	topK       int

	retrievalTimeout  time.Duration
	generationTimeout time.Duration
}

// New creates a Pipeline. The generator is required: it is the only
// stage whose failure cannot be recovered, and the pipeline's sole
// output. Everything else has a working default.
func New(generator Generator, opts ...Option) (*Pipeline, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}

	p := &Pipeline{
		generator: generator,
		tracer:    observability.NoopTracer{},
		metrics:   observability.NoopMetrics{},
		logger:    slog.Default(),
		name:      DefaultSessionName,
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.correlator == nil {
		p.correlator = correlate.New()
	}
	return p, nil
}

// Run executes the pipeline for one query and returns the updated
// conversation state.
//
// Stage order is fixed: classify, then, only for knowledge-seeking
// queries, retrieve and rank, then respond. Retrieval failures degrade
// to an empty document context; generation failures abort the run and
// are returned with no assistant message appended. Tracer failures are
// logged and swallowed.
func (p *Pipeline) Run(ctx context.Context, query string, opts ...RunOption) (ConversationState, error) {
	if ctx == nil {
		return ConversationState{}, ErrNilContext
	}
	if query == "" {
		return ConversationState{}, ErrEmptyQuery
	}

	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	runID, err := p.correlator.ResolveRun(cfg.threadID)
	if err != nil {
		// An uncorrelated run still beats no response.
		runID = uuid.New().String()
		p.logger.Warn("run correlation failed, using uncorrelated run ID",
			slog.String("thread_id", cfg.threadID),
			slog.String("error", err.Error()))
	}

	state := ConversationState{
		Query:    query,
		Messages: append([]ChatMessage(nil), cfg.history...),
		RunID:    runID,
	}

	logger := observability.EnrichLogger(p.logger, runID, cfg.user)
	observability.LogRunStart(logger, runID, cfg.threadID)

	start := time.Now()
	var sessionInput any = query
	if cfg.user != "" {
		sessionInput = map[string]string{"query": query, "user": cfg.user}
	}
	p.emit(logger, "session_start", func() error {
		return p.tracer.SessionStart(ctx, p.name, runID, sessionInput)
	})

	var reply string
	var runErr error

	// respond runs the generation stage and returns the next machine
	// state. Both the Classified and Ranked states reach it; failure
	// jumps straight to Done with no assistant message.
	respond := func() stage {
		stageStartTime := time.Now()
		observability.LogStageStart(logger, StageRespond)
		prompt := BuildPrompt(state.Route, state.Query, state.Documents)
		text, err := p.generate(ctx, prompt)
		p.observeStage(ctx, logger, StageRespond, stageStartTime, err)
		if err != nil {
			runErr = &StageError{Stage: StageRespond, Err: err}
			return stageDone
		}
		reply = text
		p.emit(logger, StageRespond, func() error {
			return p.tracer.Event(ctx, StageRespond, state.Query, reply, runID)
		})
		return stageResponded
	}

	st := stageStart
	for st != stageDone {
		switch st {
		case stageStart:
			stageStartTime := time.Now()
			observability.LogStageStart(logger, StageClassify)
			state.Route = Classify(state.Query)
			p.observeStage(ctx, logger, StageClassify, stageStartTime, nil)
			p.emit(logger, StageClassify, func() error {
				return p.tracer.Event(ctx, StageClassify, state.Query, state.Route.String(), runID)
			})
			st = stageClassified

		case stageClassified:
			if state.Route != RouteRetrieve {
				// Small talk and general queries answer directly;
				// documents stay empty.
				st = respond()
				continue
			}
			stageStartTime := time.Now()
			observability.LogStageStart(logger, StageRetrieve)
			docs, err := p.retrieveDocs(ctx, state.Query)
			p.observeStage(ctx, logger, StageRetrieve, stageStartTime, err)
			if err != nil {
				// Graceful degradation: answer without context.
				observability.LogRetrievalDegraded(logger, err)
				docs = nil
			}
			state.Documents = docs
			p.emit(logger, StageRetrieve, func() error {
				return p.tracer.Event(ctx, StageRetrieve, state.Query, documentIDs(docs), runID)
			})
			st = stageRetrieved

		case stageRetrieved:
			stageStartTime := time.Now()
			observability.LogStageStart(logger, StageRank)
			before := documentIDs(state.Documents)
			state.Documents = Rank(state.Documents)
			p.observeStage(ctx, logger, StageRank, stageStartTime, nil)
			p.emit(logger, StageRank, func() error {
				return p.tracer.Event(ctx, StageRank, before, documentIDs(state.Documents), runID)
			})
			st = stageRanked

		case stageRanked:
			st = respond()

		case stageResponded:
			state.Messages = append(state.Messages, ChatMessage{Role: RoleAssistant, Content: reply})
			st = stageDone
		}
	}

	duration := time.Since(start)
	p.metrics.RecordRun(ctx, state.Route.String(), runErr == nil, duration)

	if runErr != nil {
		p.emit(logger, "session_end", func() error {
			return p.tracer.SessionEnd(ctx, p.name, runID, runErr.Error())
		})
		var stageErr *StageError
		failedStage := ""
		if errors.As(runErr, &stageErr) {
			failedStage = stageErr.Stage
		}
		observability.LogRunError(logger, runID, runErr, float64(duration.Milliseconds()), failedStage)
		return state, runErr
	}

	p.emit(logger, "session_end", func() error {
		return p.tracer.SessionEnd(ctx, p.name, runID, reply)
	})
	observability.LogRunComplete(logger, runID, float64(duration.Milliseconds()), state.Route.String())
	return state, nil
}

// retrieveDocs calls the searcher under the retrieval deadline and maps
// failures onto the retrieval error taxonomy.
func (p *Pipeline) retrieveDocs(ctx context.Context, query string) ([]Document, error) {
	if p.searcher == nil {
		return nil, fmt.Errorf("%w: no searcher configured", ErrRetrievalUnavailable)
	}

	rctx := ctx
	if p.retrievalTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, p.retrievalTimeout)
		defer cancel()
	}

	docs, err := p.searcher.Query(rctx, query, p.topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	return docs, nil
}

// generate calls the generator under the generation deadline and maps
// failures onto the generation error taxonomy.
func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	gctx := ctx
	if p.generationTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, p.generationTimeout)
		defer cancel()
	}

	text, err := p.generator.Complete(gctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return text, nil
}

// observeStage records stage duration in logs and metrics.
func (p *Pipeline) observeStage(ctx context.Context, logger *slog.Logger, name string, start time.Time, err error) {
	d := time.Since(start)
	p.metrics.RecordStage(ctx, name, d, err)
	if err == nil {
		observability.LogStageComplete(logger, name, float64(d.Milliseconds()))
	}
}

// emit runs one tracer call, swallowing errors and panics.
// Tracing is best-effort: a broken collector never fails a run.
func (p *Pipeline) emit(logger *slog.Logger, event string, call func() error) {
	defer func() {
		if r := recover(); r != nil {
			observability.LogTracerError(logger, event, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := call(); err != nil {
		observability.LogTracerError(logger, event, err)
	}
}

// documentIDs projects a document slice to its IDs for trace payloads.
func documentIDs(docs []Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
