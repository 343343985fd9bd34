// Package logger configures the process-wide slog logger used by the CLI
// and the trainer.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New builds a logger for the given output format ("pretty", "text" or
// "json") and level string.
func New(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = NewPrettyHandler(w, opts)
	}
	return slog.New(h)
}

// Default returns an info-level pretty logger on stderr.
func Default() *slog.Logger {
	return New(os.Stderr, "pretty", "info")
}

// ParseLevel converts a string level to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
