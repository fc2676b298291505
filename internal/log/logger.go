// Package log holds the slog setup shared by the binaries, the field names
// used across components and the request-scoped logger carried in contexts.
package log

import (
	"context"
	"io"
	"log/slog"
)

type contextKey struct{}

// New builds a text logger at level and installs it as the slog default.
func New(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// WithComponent returns a child of the default logger tagged with component.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With(FieldComponent, component)
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request logger, or the default logger when ctx
// carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
