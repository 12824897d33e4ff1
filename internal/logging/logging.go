// Package logging configures the process logger and carries it through context.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

var loggerKey contextKey

// WithLogger stores a logger in context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves a logger from context, returns a discarding logger if absent.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if v, ok := ctx.Value(loggerKey).(*slog.Logger); ok && v != nil {
			return v
		}
	}
	return discard
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// New constructs a logger of the given format (text|json) and level writing to stderr.
func New(format, level string) (*slog.Logger, error) {
	return NewWithWriter(format, level, os.Stderr)
}

// NewWithWriter constructs a logger of the given format and level writing to w.
func NewWithWriter(format, level string, w io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.New("unsupported log format: " + format)
	}
}
