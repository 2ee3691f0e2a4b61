package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ctxKey is unexported so no other package can collide with the logger
// entry stored in a context.Context.
type ctxKey struct{}

// echoKey is the echo context key the request-scoped logger is stored
// under by the request-id and logging middleware.
const echoKey = "logger"

// WithContext returns a context carrying logger. Used to hand the
// request-scoped logger to collaborators that only see a
// context.Context, such as the scoring gateway.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, falling back to the
// global logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return GetLogger()
}

// FromEcho returns the request-scoped logger, falling back to the
// global logger.
func FromEcho(c echo.Context) *zap.Logger {
	if logger, ok := c.Get(echoKey).(*zap.Logger); ok {
		return logger
	}
	return GetLogger()
}
