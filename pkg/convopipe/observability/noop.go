package observability

import (
	"context"
	"time"
)

// NoopTracer is a Tracer that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopTracer struct{}

// Compile-time interface check.
var _ Tracer = NoopTracer{}

// SessionStart does nothing.
func (NoopTracer) SessionStart(_ context.Context, _, _ string, _ any) error { return nil }

// Event does nothing.
func (NoopTracer) Event(_ context.Context, _ string, _, _ any, _ string) error { return nil }

// SessionEnd does nothing.
func (NoopTracer) SessionEnd(_ context.Context, _, _ string, _ any) error { return nil }

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordRun does nothing.
func (NoopMetrics) RecordRun(_ context.Context, _ string, _ bool, _ time.Duration) {}

// RecordStage does nothing.
func (NoopMetrics) RecordStage(_ context.Context, _ string, _ time.Duration, _ error) {}
