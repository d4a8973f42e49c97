package slogx

import (
	"context"
	"log/slog"
	"sync"
)

type ctxKey struct{}

// scope is the request logger. Middleware deeper in the chain enriches it in
// place, so the access line written on the way out carries those fields too.
type scope struct {
	mu     sync.Mutex
	logger *slog.Logger
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, &scope{logger: logger})
}

// FromContext returns the request logger, or slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	s, ok := ctx.Value(ctxKey{}).(*scope)
	if !ok {
		return slog.Default()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// Enrich adds args to the request logger. No-op outside a request.
func Enrich(ctx context.Context, args ...any) {
	s, ok := ctx.Value(ctxKey{}).(*scope)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = s.logger.With(args...)
}

// WithCaller tags the request with the authenticated identity.
func WithCaller(ctx context.Context, uid, role string) {
	Enrich(ctx, "caller_uid", uid, "caller_role", role)
}
