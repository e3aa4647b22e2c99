package observability

import "log/slog"

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger carrying run_id (and user when present).
func EnrichLogger(logger *slog.Logger, runID, user string) *slog.Logger {
	if logger == nil {
		return nil
	}
	enriched := logger.With(slog.String("run_id", runID))
	if user != "" {
		enriched = enriched.With(slog.String("user", user))
	}
	return enriched
}

// LogRunStart logs the start of a pipeline run.
func LogRunStart(logger *slog.Logger, runID, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run starting",
		slog.String("run_id", runID),
		slog.String("thread_id", threadID),
	)
}

// LogRunComplete logs successful pipeline completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, route string) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.String("route", route),
	)
}

// LogRunError logs pipeline run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, stage string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("stage", stage),
	)
}

// LogStageStart logs stage execution start.
func LogStageStart(logger *slog.Logger, stage string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting",
		slog.String("stage", stage),
	)
}

// LogStageComplete logs successful stage completion.
func LogStageComplete(logger *slog.Logger, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRetrievalDegraded logs a retrieval failure that the run survived.
func LogRetrievalDegraded(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("retrieval failed, continuing with empty context",
		slog.String("error", err.Error()),
	)
}

// LogTracerError logs a swallowed tracer failure.
func LogTracerError(logger *slog.Logger, event string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("tracer call failed",
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}
