package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := testLogger()

	enriched := EnrichLogger(logger, "run-1", "alice")
	enriched.Info("test")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"user":"alice"`)
}

func TestEnrichLogger_NoUser(t *testing.T) {
	logger, buf := testLogger()

	EnrichLogger(logger, "run-1", "").Info("test")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.NotContains(t, out, `"user"`)
}

func TestLogHelpers(t *testing.T) {
	logger, buf := testLogger()

	LogRunStart(logger, "run-1", "thread-1")
	LogStageStart(logger, "classify")
	LogStageComplete(logger, "classify", 1.5)
	LogRetrievalDegraded(logger, errors.New("store down"))
	LogTracerError(logger, "session_start", errors.New("collector down"))
	LogRunError(logger, "run-1", errors.New("boom"), 10, "respond")
	LogRunComplete(logger, "run-1", 12.5, "retrieve")

	out := buf.String()
	assert.Contains(t, out, "pipeline run starting")
	assert.Contains(t, out, "stage starting")
	assert.Contains(t, out, "stage completed")
	assert.Contains(t, out, "retrieval failed, continuing with empty context")
	assert.Contains(t, out, "tracer call failed")
	assert.Contains(t, out, "pipeline run failed")
	assert.Contains(t, out, "pipeline run completed")
}

// TestLogHelpers_NilLogger verifies nil loggers are tolerated everywhere.
func TestLogHelpers_NilLogger(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "run-1", "alice"))
	LogRunStart(nil, "run-1", "t")
	LogRunComplete(nil, "run-1", 1, "general")
	LogRunError(nil, "run-1", errors.New("x"), 1, "respond")
	LogStageStart(nil, "classify")
	LogStageComplete(nil, "classify", 1)
	LogRetrievalDegraded(nil, errors.New("x"))
	LogTracerError(nil, "e", errors.New("x"))
}
