// Package logging provides structured logging utilities.
//
// Text logs are one line per record:
// [LEVEL] [component] [HH:MM:SS] message key=value
//
// Logs go to stderr so command output on stdout stays machine-readable.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/slipcheck/internal/infrastructure/config"
)

// NewLogger creates a structured logger based on config. A nil writer
// means stderr.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = NewConsoleHandler(w, opts)
	}

	return slog.New(handler)
}

// NewLoggerWithComponent creates a logger scoped to a component
// (e.g. "reconcile", "storage", "api").
func NewLoggerWithComponent(w io.Writer, cfg config.LoggingConfig, component string) *slog.Logger {
	return NewLogger(w, cfg).With(ComponentKey, component)
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch name {
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
