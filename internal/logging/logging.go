package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Init initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
//
// Every record is stamped with a run_id so the lines of one pipeline run can
// be grouped after the fact.
func Init(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	handler = newRunIDHandler(handler)

	slog.SetDefault(slog.New(handler))
}

// runIDHandler decorates every record with the run_id attribute.
type runIDHandler struct {
	inner slog.Handler
	runID slog.Attr
}

func newRunIDHandler(inner slog.Handler) *runIDHandler {
	return &runIDHandler{
		inner: inner,
		runID: slog.String("run_id", uuid.NewString()),
	}
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(h.runID)
	return h.inner.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runIDHandler{inner: h.inner.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{inner: h.inner.WithGroup(name), runID: h.runID}
}
