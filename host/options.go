package host

import (
	"log/slog"

	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
	"github.com/RekGRpth/pg-curl-sub000/hostfuncs"
)

// ModuleOption configures Load.
type ModuleOption func(*moduleOptions)

type moduleOptions struct {
	logger     *slog.Logger
	engine     ports.TransferEngine
	middleware []hostfuncs.Middleware
	bundles    []hostfuncs.HostFuncBundle
}

// WithModuleLogger sets the logger shared by the engine, session and registry.
func WithModuleLogger(logger *slog.Logger) ModuleOption {
	return func(o *moduleOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEngine replaces the net/http transfer engine.
func WithEngine(engine ports.TransferEngine) ModuleOption {
	return func(o *moduleOptions) {
		o.engine = engine
	}
}

// WithMiddleware adds registry middleware after panic recovery and logging.
func WithMiddleware(mw ...hostfuncs.Middleware) ModuleOption {
	return func(o *moduleOptions) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithExtraBundle registers additional host functions next to the curl bundle.
func WithExtraBundle(b hostfuncs.HostFuncBundle) ModuleOption {
	return func(o *moduleOptions) {
		o.bundles = append(o.bundles, b)
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithHostFunctions configures the executor with a host function registry.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithModule exports m's registry under m's configured module name and request limit.
func WithModule(m *Module) Option {
	return func(e *Executor) {
		e.registry = m.Registry()
		e.moduleName = m.cfg.ModuleName
		e.maxRequestSize = uint32(m.cfg.MaxRequestSize) //nolint:gosec // G115: config validates 0..MaxUint32
		e.logger = m.logger
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}
