package wazero

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	"github.com/RekGRpth/pg-curl-sub000/hostfuncs"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Defaults for RegisterWithRuntime.
const (
	DefaultModuleName     = "curl_host"
	DefaultMaxRequestSize = 1 << 20
)

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives adapter failures. Defaults to slog.Default().
	Logger *slog.Logger

	// ModuleName is the host module name guests import from (default: "curl_host").
	ModuleName string

	// CustomHandlers are exported next to the registry functions. They don't use
	// the packed i64 request/response convention.
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of a request read from guest memory.
	// Zero disables the check.
	MaxRequestSize uint32
}

// CustomHandler is a raw wazero function exported from the host module.
type CustomHandler struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		if name != "" {
			c.ModuleName = name
		}
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithCustomHandler adds a raw wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Logger:         slog.Default(),
		ModuleName:     DefaultModuleName,
		MaxRequestSize: DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime instantiates a host module exporting every function of
// registry under its registry name.
//
// Each exported function takes and returns a packed i64 (pointer in the upper 32
// bits, length in the lower 32). The request is read from guest memory, handed to
// the registry, and the response is written back into memory obtained from the
// guest's "allocate" export. A zero result means the response could not be
// delivered.
//
// Example:
//
//	registry, _ := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.CurlBundle(s)),
//	)
//	err := wazero.RegisterWithRuntime(ctx, runtime, registry)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) (api.Module, error) {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	for _, name := range registry.Names() {
		funcName := name
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = handleRegistryCall(ctx, mod, stack[0], registry, funcName, cfg)
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(funcName)
	}

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate host module %q: %w", cfg.ModuleName, err)
	}
	return mod, nil
}

// handleRegistryCall serves one guest call and returns the packed response.
func handleRegistryCall(ctx context.Context, mod api.Module, packed uint64, registry *hostfuncs.HandlerRegistry, name string, cfg AdapterConfig) uint64 {
	guest := GetGuestName(ctx, mod)
	logger := cfg.Logger.With("function", name, "guest", guest)
	ptr, length := UnpackPtrLen(packed)

	if cfg.MaxRequestSize > 0 && length > cfg.MaxRequestSize {
		errMsg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, cfg.MaxRequestSize)
		logger.ErrorContext(ctx, "wazero: "+errMsg)
		return writeResponse(ctx, mod, logger, hostfuncs.NewValidationError(errMsg).ToJSON())
	}

	requestBytes, ok := mod.Memory().Read(ptr, length)
	if !ok {
		logger.ErrorContext(ctx, "wazero: failed to read request from guest memory", "ptr", ptr, "len", length)
		return writeResponse(ctx, mod, logger, hostfuncs.NewInternalError("failed to read request from guest memory").ToJSON())
	}

	responseBytes, err := registry.Invoke(hostfuncs.WithCall(ctx, hostfuncs.Call{Guest: guest}), name, requestBytes)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: handler invocation failed", "error", err)
		return writeResponse(ctx, mod, logger, hostfuncs.NewInternalError(err.Error()).ToJSON())
	}

	return writeResponse(ctx, mod, logger, responseBytes)
}

// writeResponse allocates guest memory and copies data into it.
// Returns packed ptr+len or 0 on failure.
func writeResponse(ctx context.Context, mod api.Module, logger *slog.Logger, data []byte) uint64 {
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		logger.ErrorContext(ctx, "wazero: guest module missing 'allocate' export")
		return 0
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		logger.ErrorContext(ctx, "wazero: failed to call guest allocate", "error", err)
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit

	if !mod.Memory().Write(ptr, data) {
		logger.ErrorContext(ctx, "wazero: failed to write response to guest memory", "ptr", ptr, "len", len(data))
		return 0
	}

	return PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: responses are far below 4GiB
}

// LogMessageHandler returns the "log_message" export: the guest passes a packed
// ptr+len of an entities.LogMessageWire and the host logs it with the guest's
// attributes prefixed by "guest.".
func LogMessageHandler(logger *slog.Logger) CustomHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return CustomHandler{
		Name:       "log_message",
		ParamTypes: []api.ValueType{api.ValueTypeI64},
		Handler: func(ctx context.Context, mod api.Module, stack []uint64) {
			ptr, length := UnpackPtrLen(stack[0])
			payload, ok := mod.Memory().Read(ptr, length)
			if !ok {
				return
			}
			guest := GetGuestName(ctx, mod)

			var msg entities.LogMessageWire
			if err := json.Unmarshal(payload, &msg); err != nil {
				logger.InfoContext(ctx, "guest log (raw)", "guest", guest, "payload", string(payload))
				return
			}
			args := make([]any, 0, 2+2*len(msg.Attrs))
			args = append(args, "guest", guest)
			for _, a := range msg.Attrs {
				args = append(args, "guest."+a.Key, a.Value)
			}
			logger.Log(ctx, parseLevel(msg.Level), msg.Message, args...)
		},
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// PackPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen unpacks a pointer and length from a packed i64.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
