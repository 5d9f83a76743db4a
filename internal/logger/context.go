// Package logger wires zap through request contexts so handlers and use
// cases log with the request-scoped fields the HTTP middleware attached.
package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// ContextWithLogger returns a child context carrying the logger.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger attached to ctx. Code paths that run
// outside a request (startup, background jobs) get a nop logger rather
// than a nil panic.
func FromContext(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(contextKey{}).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	return l
}
