// Package ctxlog carries a request-scoped slog.Logger through context.
package ctxlog

import (
	"context"
	"log/slog"
	"sync"
)

type loggerKey struct{}

type fieldsKey struct{}

// Fields accumulates attributes learned while a request is served, such as
// the authenticated caller, so the access log written after the handler
// returns can include them.
type Fields struct {
	mu    sync.Mutex
	attrs []any
}

// Add appends key/value pairs.
func (f *Fields) Add(args ...any) {
	f.mu.Lock()
	f.attrs = append(f.attrs, args...)
	f.mu.Unlock()
}

// Attrs returns a copy of the collected key/value pairs.
func (f *Fields) Attrs() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.attrs...)
}

// FromContext returns the request logger, or slog.Default() outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields attaches an empty Fields collector to ctx.
func WithFields(ctx context.Context) (context.Context, *Fields) {
	f := &Fields{}
	return context.WithValue(ctx, fieldsKey{}, f), f
}

// With derives a logger carrying args for the rest of the request and
// records args on the request's Fields collector, if any.
func With(ctx context.Context, args ...any) context.Context {
	if f, ok := ctx.Value(fieldsKey{}).(*Fields); ok {
		f.Add(args...)
	}
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
