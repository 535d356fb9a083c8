package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RekGRpth/pg-curl-sub000/application/session"
	"github.com/RekGRpth/pg-curl-sub000/config"
	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
	"github.com/RekGRpth/pg-curl-sub000/hostfuncs"
	"github.com/RekGRpth/pg-curl-sub000/infrastructure/transfer"
)

// Module is the loaded curl host module.
type Module struct {
	logger    *slog.Logger
	engine    ports.TransferEngine
	interrupt *session.Interrupt
	session   *session.Session
	registry  *hostfuncs.HandlerRegistry
	cfg       config.Config
	mu        sync.Mutex
	closed    bool
}

// Load performs module initialisation: global engine init, interrupt handler
// install (when cfg.HandleInterrupt is set), session and buffer allocation, and
// registration of the curl host functions.
func Load(cfg config.Config, opts ...ModuleOption) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := moduleOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = transfer.NewEngine(transfer.WithLogger(o.logger))
	}

	if err := o.engine.GlobalInit(); err != nil {
		return nil, &domainerrors.EngineError{Err: fmt.Errorf("global init: %w", err)}
	}

	interrupt := session.NewInterrupt()
	if cfg.HandleInterrupt {
		interrupt.Install()
	}

	s := session.New(o.engine,
		session.WithLogger(o.logger),
		session.WithInterrupt(interrupt),
		session.WithMaxHeaders(cfg.MaxHeaders),
		session.WithMaxResponseSize(cfg.MaxResponseSize),
		session.WithDefaultUserAgent(cfg.DefaultUserAgent),
	)

	middleware := append([]hostfuncs.Middleware{
		hostfuncs.PanicRecoveryMiddleware(),
		hostfuncs.SlogMiddleware(o.logger),
	}, o.middleware...)
	bundles := append([]hostfuncs.HostFuncBundle{hostfuncs.CurlBundle(s)}, o.bundles...)

	registryOpts := []hostfuncs.RegistryOption{hostfuncs.WithMiddleware(middleware...)}
	for _, b := range bundles {
		registryOpts = append(registryOpts, hostfuncs.WithBundle(b))
	}
	registry, err := hostfuncs.NewRegistry(registryOpts...)
	if err != nil {
		interrupt.Restore()
		o.engine.GlobalCleanup()
		return nil, fmt.Errorf("failed to build host function registry: %w", err)
	}

	m := &Module{
		logger:    o.logger,
		engine:    o.engine,
		interrupt: interrupt,
		session:   s,
		registry:  registry,
		cfg:       cfg,
	}
	m.logger.Info("curl host module loaded",
		"module", cfg.ModuleName,
		"session", s.ID(),
		"functions", len(registry.Names()),
		"interrupt", interrupt.Installed())
	return m, nil
}

// ErrModuleClosed is returned by Invoke after Close.
var ErrModuleClosed = errors.New("host module closed")

// Invoke calls a host function by name with a JSON payload.
func (m *Module) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrModuleClosed
	}
	return m.registry.Invoke(ctx, name, payload)
}

// Close performs module teardown: restores the interrupt disposition, releases
// the session and its buffers, and runs global engine cleanup. Calling it again
// is a no-op.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	m.interrupt.Restore()
	m.session.Close()
	m.engine.GlobalCleanup()
	m.logger.Info("curl host module unloaded", "module", m.cfg.ModuleName, "session", m.session.ID())
	return nil
}

// Registry returns the host function registry.
func (m *Module) Registry() *hostfuncs.HandlerRegistry {
	return m.registry
}

// Session returns the module's session.
func (m *Module) Session() *session.Session {
	return m.session
}

// Interrupt returns the interrupt bridge.
func (m *Module) Interrupt() *session.Interrupt {
	return m.interrupt
}

// Config returns the configuration the module was loaded with.
func (m *Module) Config() config.Config {
	return m.cfg
}
