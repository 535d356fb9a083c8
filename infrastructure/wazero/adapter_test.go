package wazero

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/RekGRpth/pg-curl-sub000/hostfuncs"
	"github.com/RekGRpth/pg-curl-sub000/internal/wasmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()
	assert.Equal(t, "curl_host", cfg.ModuleName)
	assert.Equal(t, uint32(DefaultMaxRequestSize), cfg.MaxRequestSize)
	assert.NotNil(t, cfg.Logger)
}

func TestAdapterOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithModuleName("http")(&cfg)
	WithModuleName("")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithCustomHandler(CustomHandler{Name: "test_handler"})(&cfg)

	assert.Equal(t, "http", cfg.ModuleName)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	require.Len(t, cfg.CustomHandlers, 1)
	assert.Equal(t, "test_handler", cfg.CustomHandlers[0].Name)
}

func TestPackUnpackPtrLen(t *testing.T) {
	tests := []struct {
		ptr    uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{0x12345678, 0x9ABCDEF0},
		{100, 50},
	}

	for _, tt := range tests {
		gotPtr, gotLen := UnpackPtrLen(PackPtrLen(tt.ptr, tt.length))
		assert.Equal(t, tt.ptr, gotPtr)
		assert.Equal(t, tt.length, gotLen)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}

func TestGuestName(t *testing.T) {
	ctx := WithGuestName(context.Background(), "report")
	name, ok := GuestNameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "report", name)
	assert.Equal(t, "report", GetGuestName(ctx, nil))
	assert.Empty(t, GetGuestName(context.Background(), nil))
}

// callGuest writes payload into the guest, calls export and returns the response.
func callGuest(t *testing.T, ctx context.Context, mod api.Module, export string, payload []byte) []byte {
	t.Helper()
	res, err := mod.ExportedFunction("allocate").Call(ctx, uint64(len(payload)))
	require.NoError(t, err)
	ptr := uint32(res[0])
	require.True(t, mod.Memory().Write(ptr, payload))

	out, err := mod.ExportedFunction(export).Call(ctx, PackPtrLen(ptr, uint32(len(payload))))
	require.NoError(t, err)
	rptr, rlen := UnpackPtrLen(out[0])
	require.NotZero(t, rptr)
	data, ok := mod.Memory().Read(rptr, rlen)
	require.True(t, ok)
	return bytes.Clone(data)
}

func newRuntime(t *testing.T, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	_, err := RegisterWithRuntime(ctx, rt, registry, opts...)
	require.NoError(t, err)
	return ctx, rt
}

func TestRegisterWithRuntime_RoundTrip(t *testing.T) {
	var seen string
	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithByteHandler("echo", func(ctx context.Context, payload []byte) ([]byte, error) {
			if c, ok := hostfuncs.CallFromContext(ctx); ok {
				seen = c.Function + "@" + c.Guest
			}
			return append([]byte("echo:"), payload...), nil
		}),
	)
	require.NoError(t, err)

	ctx, rt := newRuntime(t, registry)
	guest, err := rt.InstantiateWithConfig(ctx, wasmtest.Guest(DefaultModuleName, wasmtest.Call("echo")),
		wazero.NewModuleConfig().WithName("guest"))
	require.NoError(t, err)

	assert.Equal(t, "echo:hello", string(callGuest(t, ctx, guest, "echo", []byte("hello"))))
	assert.Equal(t, "echo@guest", seen)
}

func TestRegisterWithRuntime_RequestTooLarge(t *testing.T) {
	called := false
	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithByteHandler("echo", func(context.Context, []byte) ([]byte, error) {
			called = true
			return nil, nil
		}),
	)
	require.NoError(t, err)

	ctx, rt := newRuntime(t, registry, WithMaxRequestSize(4))
	guest, err := rt.InstantiateWithConfig(ctx, wasmtest.Guest(DefaultModuleName, wasmtest.Call("echo")),
		wazero.NewModuleConfig().WithName("guest"))
	require.NoError(t, err)

	var resp hostfuncs.ErrorResponse
	require.NoError(t, json.Unmarshal(callGuest(t, ctx, guest, "echo", []byte("too long")), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "bad_request", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "exceeds maximum 4 bytes")
	assert.False(t, called)
}

func TestRegisterWithRuntime_CustomModuleName(t *testing.T) {
	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithByteHandler("echo", func(_ context.Context, p []byte) ([]byte, error) { return p, nil }),
	)
	require.NoError(t, err)

	ctx, rt := newRuntime(t, registry, WithModuleName("http"))
	assert.NotNil(t, rt.Module("http"))
	assert.Nil(t, rt.Module(DefaultModuleName))

	_, err = rt.Instantiate(ctx, wasmtest.Guest(DefaultModuleName, wasmtest.Call("echo")))
	assert.Error(t, err)
}

func TestLogMessageHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry, err := hostfuncs.NewRegistry()
	require.NoError(t, err)

	ctx, rt := newRuntime(t, registry, WithCustomHandler(LogMessageHandler(logger)))
	guest, err := rt.InstantiateWithConfig(ctx,
		wasmtest.Guest(DefaultModuleName, wasmtest.Func{Name: "log_message", NoResult: true}),
		wazero.NewModuleConfig().WithName("reporter"))
	require.NoError(t, err)

	msg := []byte(`{"level":"warn","message":"slow transfer","attrs":[{"key":"url","type":"string","value":"http://localhost"}]}`)
	res, err := guest.ExportedFunction("allocate").Call(ctx, uint64(len(msg)))
	require.NoError(t, err)
	ptr := uint32(res[0])
	require.True(t, guest.Memory().Write(ptr, msg))

	_, err = guest.ExportedFunction("log_message").Call(ctx, PackPtrLen(ptr, uint32(len(msg))))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "slow transfer", entry["msg"])
	assert.Equal(t, "reporter", entry["guest"])
	assert.Equal(t, "http://localhost", entry["guest.url"])
}
