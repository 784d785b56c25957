// Package observability configures structured logging for SmartClip and
// hands out loggers bound to the current request.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Liu-design-beep/smartclip/common/trace"
)

// Setup installs the default slog logger. level is debug, info, warn or
// error; format is json or text. Output goes to stderr so that the
// interactive chat command keeps stdout for the conversation.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// From returns the default logger, annotated with the trace ID in ctx.
func From(ctx context.Context) *slog.Logger {
	if id := trace.From(ctx); id != "" {
		return slog.With("trace_id", id)
	}
	return slog.Default()
}
