package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxAttrLen bounds stringified event payloads attached as span attributes.
const maxAttrLen = 1024

// OTelTracer exports session and node events as OpenTelemetry spans.
// Each session becomes one span; node events become child spans that
// open and close immediately.
//
// The tracer uses the global OTel tracer provider. Configure the provider
// before creating it:
//
//	otel.SetTracerProvider(yourProvider)
type OTelTracer struct {
	tracer   trace.Tracer
	mu       sync.Mutex
	sessions map[string]session // runID -> open session span
}

type session struct {
	ctx  context.Context
	span trace.Span
}

// Compile-time interface check.
var _ Tracer = (*OTelTracer)(nil)

// NewOTelTracer creates a tracer that exports spans via OpenTelemetry.
// It binds to the tracer provider installed at construction time.
func NewOTelTracer() *OTelTracer {
	return &OTelTracer{
		tracer:   otel.Tracer("convopipe"),
		sessions: make(map[string]session),
	}
}

// SessionStart implements Tracer. It opens a session span that stays
// open until SessionEnd for the same run ID. A second SessionStart for
// an already-open run ID is an error (the original span is kept).
func (t *OTelTracer) SessionStart(ctx context.Context, name, runID string, input any) error {
	spanCtx, span := t.tracer.Start(ctx, "convopipe.session",
		trace.WithAttributes(
			attribute.String("session.name", name),
			attribute.String("run.id", runID),
			attribute.String("session.input", truncate(input)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, open := t.sessions[runID]; open {
		span.End()
		return fmt.Errorf("session already open for run %s", runID)
	}
	t.sessions[runID] = session{ctx: spanCtx, span: span}
	return nil
}

// Event implements Tracer. The node span is parented to the open session
// span for the run when one exists, otherwise it is recorded detached.
func (t *OTelTracer) Event(ctx context.Context, name string, input, output any, runID string) error {
	t.mu.Lock()
	s, open := t.sessions[runID]
	t.mu.Unlock()

	parent := ctx
	if open {
		parent = s.ctx
	}

	_, span := t.tracer.Start(parent, "convopipe.node."+name,
		trace.WithAttributes(
			attribute.String("node.name", name),
			attribute.String("run.id", runID),
			attribute.String("node.input", truncate(input)),
			attribute.String("node.output", truncate(output)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
	return nil
}

// SessionEnd implements Tracer. It closes the session span for the run.
// Ending an unknown run ID is an error.
func (t *OTelTracer) SessionEnd(ctx context.Context, name, runID string, output any) error {
	t.mu.Lock()
	s, open := t.sessions[runID]
	delete(t.sessions, runID)
	t.mu.Unlock()

	if !open {
		return fmt.Errorf("no open session for run %s", runID)
	}

	s.span.SetAttributes(attribute.String("session.output", truncate(output)))
	s.span.SetStatus(codes.Ok, "")
	s.span.End()
	return nil
}

// Close ends any session spans left open, marking them abandoned.
// Call during shutdown so crashed runs still export their spans.
func (t *OTelTracer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for runID, s := range t.sessions {
		s.span.SetStatus(codes.Error, "session abandoned")
		s.span.End()
		delete(t.sessions, runID)
	}
}

// truncate stringifies a payload and bounds its length so oversized
// documents don't blow up span attribute limits.
func truncate(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprint(v)
	if len(s) > maxAttrLen {
		return s[:maxAttrLen]
	}
	return s
}
