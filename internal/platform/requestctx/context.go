package requestctx

import (
	"context"

	"go.uber.org/zap"

	"github.com/servana/storefront/internal/session"
)

type contextKey string

const (
	loggerContextKey  contextKey = "github.com/servana/storefront/internal/platform/requestctx/logger"
	sessionContextKey contextKey = "github.com/servana/storefront/internal/platform/requestctx/session"
)

var noopLogger = zap.NewNop()

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithSession stores the caller's session on the request context.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey, sess)
}

// Session retrieves the caller's session, defaulting to anonymous.
func Session(ctx context.Context) session.Session {
	if ctx == nil {
		return session.Anonymous()
	}
	if sess, ok := ctx.Value(sessionContextKey).(session.Session); ok {
		return sess
	}
	return session.Anonymous()
}
