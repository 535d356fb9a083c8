package hostfuncs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Call identifies one host function invocation. The registry attaches it to
// the context handed to middleware and handlers.
type Call struct {
	Started  time.Time
	ID       string
	Function string
	Guest    string
}

type callKey struct{}

// WithCall returns a copy of ctx carrying c. Fields left empty are filled in by
// HandlerRegistry.Invoke, so callers usually set only Guest.
func WithCall(ctx context.Context, c Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFromContext returns the invocation ctx belongs to.
func CallFromContext(ctx context.Context) (Call, bool) {
	c, ok := ctx.Value(callKey{}).(Call)
	return c, ok
}

// beginCall stamps ctx with the function name, a fresh id and the start time.
func beginCall(ctx context.Context, name string) context.Context {
	c, _ := CallFromContext(ctx)
	c.Function = name
	c.ID = uuid.NewString()
	c.Started = time.Now()
	return WithCall(ctx, c)
}
