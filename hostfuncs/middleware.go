package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler with cross-cutting behaviour.
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware turns a handler panic into a panic ErrorResponse so a
// misbehaving engine cannot take the host down.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// SlogMiddleware logs every call at Debug level and failures at Error level,
// tagged with the function, guest and call id.
func SlogMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			c, ok := CallFromContext(ctx)
			if !ok {
				c = Call{Function: "unknown", Started: time.Now()}
			}
			attrs := []any{"function", c.Function, "call_id", c.ID}
			if c.Guest != "" {
				attrs = append(attrs, "guest", c.Guest)
			}

			resp, err := next(ctx, payload)
			attrs = append(attrs, "duration", time.Since(c.Started))
			if err != nil {
				logger.ErrorContext(ctx, "host function failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.DebugContext(ctx, "host function completed", attrs...)
			return resp, nil
		}
	}
}
