package convopipe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/convopipe/pkg/convopipe/correlate"
)

// echoGenerator returns a canned reply and captures the prompt it saw.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (g *echoGenerator) Complete(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *echoGenerator) lastPrompt(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.prompts)
	return g.prompts[len(g.prompts)-1]
}

// recordingTracer captures tracer calls in order. failWith and panicWith
// let tests exercise the best-effort tracing contract.
type recordingTracer struct {
	mu           sync.Mutex
	calls        []string
	runIDs       []string
	sessionInput any
	failWith     error
	panicWith    any
}

func (r *recordingTracer) record(call, runID string) error {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.runIDs = append(r.runIDs, runID)
	r.mu.Unlock()
	if r.panicWith != nil {
		panic(r.panicWith)
	}
	return r.failWith
}

func (r *recordingTracer) SessionStart(_ context.Context, _, runID string, input any) error {
	r.mu.Lock()
	r.sessionInput = input
	r.mu.Unlock()
	return r.record("session_start", runID)
}

func (r *recordingTracer) Event(_ context.Context, name string, _, _ any, runID string) error {
	return r.record(name, runID)
}

func (r *recordingTracer) SessionEnd(_ context.Context, _, runID string, _ any) error {
	return r.record("session_end", runID)
}

func (r *recordingTracer) callNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_NilGenerator(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilGenerator)
}

func TestRun_InputValidation(t *testing.T) {
	p, err := New(GeneratorFunc(func(context.Context, string) (string, error) {
		return "ok", nil
	}), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = p.Run(nil, "hello") //nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = p.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRun_SmallTalk(t *testing.T) {
	gen := &echoGenerator{reply: "Hello! How can I help?"}
	searcher := SearcherFunc(func(context.Context, string, int) ([]Document, error) {
		t.Fatal("searcher must not run for small talk")
		return nil, nil
	})

	p, err := New(gen, WithSearcher(searcher), WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, RouteSmallTalk, state.Route)
	assert.Empty(t, state.Documents)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, RoleAssistant, state.Messages[0].Role)
	assert.Equal(t, "Hello! How can I help?", state.Messages[0].Content)
	assert.NotEmpty(t, state.RunID)

	// Small talk bypasses context injection entirely.
	assert.Equal(t, "hello", gen.lastPrompt(t))
}

func TestRun_RetrieveRoute(t *testing.T) {
	gen := &echoGenerator{reply: "You accrue 20 days per year."}
	var gotK int
	searcher := SearcherFunc(func(_ context.Context, _ string, k int) ([]Document, error) {
		gotK = k
		return []Document{
			{ID: "d1", Text: "first doc", Score: 0.4},
			{ID: "d2", Text: "second doc", Score: 0.9},
		}, nil
	})

	p, err := New(gen, WithSearcher(searcher), WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "what is the leave policy?")
	require.NoError(t, err)

	assert.Equal(t, RouteRetrieve, state.Route)
	assert.Equal(t, DefaultTopK, gotK)

	require.Len(t, state.Documents, 2)
	assert.Equal(t, "d2", state.Documents[0].ID)
	assert.Equal(t, "d1", state.Documents[1].ID)

	// Ranked order flows into the prompt: higher-scored text first.
	prompt := gen.lastPrompt(t)
	assert.Less(t, strings.Index(prompt, "second doc"), strings.Index(prompt, "first doc"))
	assert.Contains(t, prompt, "User Query: what is the leave policy?")

	require.Len(t, state.Messages, 1)
	assert.Equal(t, "You accrue 20 days per year.", state.Messages[0].Content)
}

func TestRun_GeneralRoute(t *testing.T) {
	gen := &echoGenerator{reply: "It depends."}
	p, err := New(gen, WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "what should I have for lunch?")
	require.NoError(t, err)

	assert.Equal(t, RouteGeneral, state.Route)
	assert.Empty(t, state.Documents)
	require.Len(t, state.Messages, 1)

	// General queries still get the contextual frame, just with no docs.
	assert.Contains(t, gen.lastPrompt(t), "You are an expert HR assistant.")
}

func TestRun_RetrievalFailureDegrades(t *testing.T) {
	gen := &echoGenerator{reply: "Here is what I know."}
	searcher := SearcherFunc(func(context.Context, string, int) ([]Document, error) {
		return nil, errors.New("vector store unreachable")
	})

	p, err := New(gen, WithSearcher(searcher), WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "troubleshoot my VPN")
	require.NoError(t, err)

	assert.Empty(t, state.Documents)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "Here is what I know.", state.Messages[0].Content)
}

func TestRun_NoSearcherDegrades(t *testing.T) {
	gen := &echoGenerator{reply: "answered anyway"}
	p, err := New(gen, WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "where is the onboarding doc?")
	require.NoError(t, err)
	assert.Empty(t, state.Documents)
	require.Len(t, state.Messages, 1)
}

func TestRun_GenerationFailureAborts(t *testing.T) {
	gen := &echoGenerator{err: errors.New("model overloaded")}
	history := []ChatMessage{{Role: RoleUser, Content: "earlier turn"}}

	p, err := New(gen, WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "hello", WithHistory(history))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRespond, stageErr.Stage)

	// No partial assistant message: the log is exactly the input history.
	assert.Equal(t, history, state.Messages)
}

func TestRun_GenerationTimeout(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	p, err := New(gen,
		WithGenerationTimeout(10*time.Millisecond),
		WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrGenerationTimeout)
}

func TestRun_RetrievalTimeoutDegrades(t *testing.T) {
	gen := &echoGenerator{reply: "done without context"}
	searcher := SearcherFunc(func(ctx context.Context, _ string, _ int) ([]Document, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	p, err := New(gen,
		WithSearcher(searcher),
		WithRetrievalTimeout(10*time.Millisecond),
		WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "find the escalation procedure")
	require.NoError(t, err)
	assert.Empty(t, state.Documents)
	require.Len(t, state.Messages, 1)
}

func TestRun_TraceEventOrder(t *testing.T) {
	tracer := &recordingTracer{}
	gen := &echoGenerator{reply: "ok"}
	searcher := SearcherFunc(func(context.Context, string, int) ([]Document, error) {
		return []Document{{ID: "d1", Score: 1}}, nil
	})

	p, err := New(gen,
		WithSearcher(searcher),
		WithTracer(tracer),
		WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "leave policy")
	require.NoError(t, err)

	want := []string{"session_start", StageClassify, StageRetrieve, StageRank, StageRespond, "session_end"}
	assert.Equal(t, want, tracer.callNames())

	// Every tracer call carries the run ID.
	for _, id := range tracer.runIDs {
		assert.Equal(t, state.RunID, id)
	}
}

func TestRun_TraceEventOrder_SmallTalk(t *testing.T) {
	tracer := &recordingTracer{}
	gen := &echoGenerator{reply: "hi"}

	p, err := New(gen, WithTracer(tracer), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "good morning")
	require.NoError(t, err)

	want := []string{"session_start", StageClassify, StageRespond, "session_end"}
	assert.Equal(t, want, tracer.callNames())
}

func TestRun_TracerErrorsSwallowed(t *testing.T) {
	tracer := &recordingTracer{failWith: errors.New("collector down")}
	gen := &echoGenerator{reply: "fine"}

	p, err := New(gen, WithTracer(tracer), WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
}

func TestRun_TracerPanicsSwallowed(t *testing.T) {
	tracer := &recordingTracer{panicWith: "tracer exploded"}
	gen := &echoGenerator{reply: "fine"}

	p, err := New(gen, WithTracer(tracer), WithLogger(quietLogger()))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
}

func TestRun_ThreadCorrelation(t *testing.T) {
	gen := &echoGenerator{reply: "ok"}
	p, err := New(gen, WithLogger(quietLogger()))
	require.NoError(t, err)

	first, err := p.Run(context.Background(), "hello", WithThreadID("thread-42"))
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "hello again, hello", WithThreadID("thread-42"))
	require.NoError(t, err)
	other, err := p.Run(context.Background(), "hello", WithThreadID("thread-99"))
	require.NoError(t, err)

	assert.Equal(t, first.RunID, second.RunID)
	assert.NotEqual(t, first.RunID, other.RunID)
}

func TestRun_NoThreadGetsFreshRunID(t *testing.T) {
	gen := &echoGenerator{reply: "ok"}
	p, err := New(gen, WithLogger(quietLogger()))
	require.NoError(t, err)

	a, err := p.Run(context.Background(), "hello")
	require.NoError(t, err)
	b, err := p.Run(context.Background(), "hello")
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRun_ConcurrentSameThread(t *testing.T) {
	gen := &echoGenerator{reply: "ok"}
	p, err := New(gen,
		WithCorrelator(correlate.New()),
		WithLogger(quietLogger()))
	require.NoError(t, err)

	const n = 16
	runIDs := make([]string, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			state, err := p.Run(context.Background(), "hello", WithThreadID("shared"))
			if err != nil {
				return err
			}
			runIDs[i] = state.RunID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := 1; i < n; i++ {
		assert.Equal(t, runIDs[0], runIDs[i])
	}
}

func TestRun_HistoryIsCopied(t *testing.T) {
	gen := &echoGenerator{reply: "new reply"}
	p, err := New(gen, WithLogger(quietLogger()))
	require.NoError(t, err)

	history := []ChatMessage{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
	}
	snapshot := append([]ChatMessage(nil), history...)

	state, err := p.Run(context.Background(), "hello", WithHistory(history))
	require.NoError(t, err)

	require.Len(t, state.Messages, 3)
	assert.Equal(t, snapshot, state.Messages[:2])
	assert.Equal(t, "new reply", state.Messages[2].Content)

	// The caller's slice is untouched.
	assert.Equal(t, snapshot, history)
}

func TestRun_UserAttribution(t *testing.T) {
	tracer := &recordingTracer{}
	gen := &echoGenerator{reply: "ok"}

	p, err := New(gen, WithTracer(tracer), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "hello", WithUser("alice"))
	require.NoError(t, err)

	input, ok := tracer.sessionInput.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "alice", input["user"])
	assert.Equal(t, "hello", input["query"])

	// Without a user the session input is the bare query.
	_, err = p.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", tracer.sessionInput)
}

func TestRun_SessionEndCarriesFailure(t *testing.T) {
	tracer := &recordingTracer{}
	gen := &echoGenerator{err: errors.New("boom")}

	p, err := New(gen, WithTracer(tracer), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "hello")
	require.Error(t, err)

	names := tracer.callNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "session_end", names[len(names)-1])
}
