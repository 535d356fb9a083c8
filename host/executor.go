package host

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/RekGRpth/pg-curl-sub000/hostfuncs"
	wazeroadapter "github.com/RekGRpth/pg-curl-sub000/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Executor runs WebAssembly guests that import the curl host functions.
type Executor struct {
	runtime        wazero.Runtime
	registry       *hostfuncs.HandlerRegistry
	logger         *slog.Logger
	moduleName     string
	maxRequestSize uint32
}

// NewExecutor creates a wazero runtime with WASI and the host module installed.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger:         slog.Default(),
		moduleName:     wazeroadapter.DefaultModuleName,
		maxRequestSize: wazeroadapter.DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		reg, err := hostfuncs.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		e.registry = reg
	}

	// Cancelling a Call's context also stops a guest spinning in its own code.
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	_, err := wazeroadapter.RegisterWithRuntime(ctx, rt, e.registry,
		wazeroadapter.WithModuleName(e.moduleName),
		wazeroadapter.WithMaxRequestSize(e.maxRequestSize),
		wazeroadapter.WithLogger(e.logger),
		wazeroadapter.WithCustomHandler(wazeroadapter.LogMessageHandler(e.logger)),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases the runtime and every guest loaded into it.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// ModuleName returns the import module name guests must use.
func (e *Executor) ModuleName() string {
	return e.moduleName
}

// Guest is an instantiated WebAssembly module.
type Guest struct {
	module api.Module
	name   string
}

// LoadGuest instantiates wasmBytes under name.
func (e *Executor) LoadGuest(ctx context.Context, name string, wasmBytes []byte) (*Guest, error) {
	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate guest %q: %w", name, err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	e.logger.Debug("guest loaded", "guest", name)
	return &Guest{module: mod, name: name}, nil
}

// Name returns the guest's module name.
func (g *Guest) Name() string {
	return g.name
}

// Call invokes an (i64) -> i64 export of the guest with input and returns the
// bytes its packed result points at.
func (g *Guest) Call(ctx context.Context, export string, input []byte) ([]byte, error) {
	f := g.module.ExportedFunction(export)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", export)
	}
	ctx = wazeroadapter.WithGuestName(ctx, g.name)

	var ptr uint32
	if len(input) > 0 {
		allocate := g.module.ExportedFunction("allocate")
		if allocate == nil {
			return nil, fmt.Errorf("guest does not export 'allocate'")
		}
		res, err := allocate.Call(ctx, uint64(len(input)))
		if err != nil {
			return nil, fmt.Errorf("failed to allocate in guest: %w", err)
		}
		if len(res) == 0 {
			return nil, fmt.Errorf("allocate returned no results")
		}
		ptr = uint32(res[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
		if !g.module.Memory().Write(ptr, input) {
			return nil, fmt.Errorf("failed to write input to guest memory")
		}
	}

	results, err := f.Call(ctx, wazeroadapter.PackPtrLen(ptr, uint32(len(input)))) //nolint:gosec // G115: bounded by guest memory
	if err != nil {
		return nil, fmt.Errorf("%s: %w", export, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rptr, rlen := wazeroadapter.UnpackPtrLen(results[0])
	if rptr == 0 {
		return nil, fmt.Errorf("%s: null response from guest", export)
	}
	data, ok := g.module.Memory().Read(rptr, rlen)
	if !ok {
		return nil, fmt.Errorf("%s: failed to read response from memory", export)
	}
	return bytes.Clone(data), nil
}

// Close releases the guest.
func (g *Guest) Close(ctx context.Context) error {
	return g.module.Close(ctx)
}
