// Package observability provides the tracing, logging, and metrics
// surface for the pipeline: a session/node Tracer contract with OTel,
// slog, fan-out, and no-op implementations, structured logging helpers,
// and OpenTelemetry metrics.
//
// Every implementation here is best-effort by contract: tracer failures
// are reported as return values for the caller to log, and must never
// affect pipeline outcome.
package observability

import (
	"context"
	"errors"
	"log/slog"
)

// Tracer receives session and node lifecycle events from a pipeline run.
//
// All three methods are fire-and-forget from the pipeline's point of
// view: returned errors are logged by the caller and swallowed.
// Implementations must be safe for concurrent use, since runs for
// different threads execute concurrently.
type Tracer interface {
	// SessionStart marks the beginning of a run.
	SessionStart(ctx context.Context, name, runID string, input any) error

	// Event records one completed node within a run.
	Event(ctx context.Context, name string, input, output any, runID string) error

	// SessionEnd marks the end of a run.
	SessionEnd(ctx context.Context, name, runID string, output any) error
}

// LogTracer writes session and node events to a slog logger.
// It is the default collector when no external backend is configured.
type LogTracer struct {
	logger *slog.Logger
}

// Compile-time interface check.
var _ Tracer = (*LogTracer)(nil)

// NewLogTracer creates a tracer that logs events at debug level.
// A nil logger defaults to slog.Default().
func NewLogTracer(logger *slog.Logger) *LogTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracer{logger: logger}
}

// SessionStart implements Tracer.
func (t *LogTracer) SessionStart(ctx context.Context, name, runID string, input any) error {
	t.logger.DebugContext(ctx, "session started",
		slog.String("session", name),
		slog.String("run_id", runID),
		slog.Any("input", input),
	)
	return nil
}

// Event implements Tracer.
func (t *LogTracer) Event(ctx context.Context, name string, input, output any, runID string) error {
	t.logger.DebugContext(ctx, "node event",
		slog.String("node", name),
		slog.String("run_id", runID),
		slog.Any("input", input),
		slog.Any("output", output),
	)
	return nil
}

// SessionEnd implements Tracer.
func (t *LogTracer) SessionEnd(ctx context.Context, name, runID string, output any) error {
	t.logger.DebugContext(ctx, "session ended",
		slog.String("session", name),
		slog.String("run_id", runID),
		slog.Any("output", output),
	)
	return nil
}

// MultiTracer fans events out to several tracers.
// Each tracer receives every event even when an earlier one fails;
// the joined error is returned for logging.
type MultiTracer []Tracer

// Compile-time interface check.
var _ Tracer = MultiTracer(nil)

// SessionStart implements Tracer.
func (m MultiTracer) SessionStart(ctx context.Context, name, runID string, input any) error {
	var errs []error
	for _, t := range m {
		if err := t.SessionStart(ctx, name, runID, input); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Event implements Tracer.
func (m MultiTracer) Event(ctx context.Context, name string, input, output any, runID string) error {
	var errs []error
	for _, t := range m {
		if err := t.Event(ctx, name, input, output, runID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SessionEnd implements Tracer.
func (m MultiTracer) SessionEnd(ctx context.Context, name, runID string, output any) error {
	var errs []error
	for _, t := range m {
		if err := t.SessionEnd(ctx, name, runID, output); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
