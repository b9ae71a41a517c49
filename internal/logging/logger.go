// Package logging builds the process logger and carries request-scoped
// loggers through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

type loggerKey struct{}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// New builds the process logger. format is "json" or "text"; text output is colourised
// only when w is a terminal-like stream.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    w != os.Stdout && w != os.Stderr,
		})
	}

	return slog.New(handler).With("service", "storefront")
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return discard
}

// WithLogger stores logger in ctx. A nil logger stores Discard().
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = discard
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext prefers the request logger, then fallback, then Discard().
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return discard
}

// With adds attributes to the request logger in ctx.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx, nil).With(args...))
}
