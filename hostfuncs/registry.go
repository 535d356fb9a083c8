package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// HandlerRegistry is an immutable set of named host functions with their
// middleware already applied. Lookups need no locking.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
	names    []string
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	errs       []error
}

// NewRegistry builds a HandlerRegistry from opts. Every registration problem is
// reported, joined into one error.
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(CurlBundle(s)),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	wrapped := make(map[string]ByteHandler, len(b.handlers))
	for name, handler := range b.handlers {
		// First middleware ends up outermost.
		for i := len(b.middleware) - 1; i >= 0; i-- {
			handler = b.middleware[i](handler)
		}
		wrapped[name] = handler
	}

	return &HandlerRegistry{
		handlers: wrapped,
		names:    slices.Sorted(maps.Keys(wrapped)),
	}, nil
}

// Invoke dispatches a call by name. An unknown name yields a NotFound
// ErrorResponse rather than a Go error.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	return handler(beginCall(ctx, name), payload)
}

// Has reports whether name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *HandlerRegistry) Names() []string {
	return slices.Clone(r.names)
}

func (b *registryBuilder) add(name string, handler ByteHandler) {
	switch {
	case name == "":
		b.errs = append(b.errs, errors.New("handler name cannot be empty"))
	case handler == nil:
		b.errs = append(b.errs, fmt.Errorf("handler %q is nil", name))
	default:
		if _, exists := b.handlers[name]; exists {
			b.errs = append(b.errs, fmt.Errorf("duplicate handler name: %q", name))
			return
		}
		b.handlers[name] = handler
	}
}

// WithByteHandler registers a raw ByteHandler.
func WithByteHandler(name string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, handler)
	}
}

// WithMiddleware appends middleware. The first one registered runs first.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
