package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(context.Context, []byte) ([]byte, error) { return nil, nil }

func TestNewRegistry(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		reg, err := NewRegistry()
		require.NoError(t, err)
		assert.Empty(t, reg.Names())
	})

	t.Run("registration errors are joined", func(t *testing.T) {
		_, err := NewRegistry(
			WithByteHandler(FuncPerform, nopHandler),
			WithByteHandler(FuncPerform, nopHandler),
			WithByteHandler("", nopHandler),
			WithByteHandler(FuncReset, nil),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate handler name: "curl_easy_perform"`)
		assert.Contains(t, err.Error(), "cannot be empty")
		assert.Contains(t, err.Error(), `handler "curl_easy_reset" is nil`)
	})

	t.Run("names sorted", func(t *testing.T) {
		reg, err := NewRegistry(
			WithByteHandler(FuncSetoptLong, nopHandler),
			WithByteHandler(FuncCleanup, nopHandler),
			WithByteHandler(FuncInit, nopHandler),
		)
		require.NoError(t, err)
		names := reg.Names()
		assert.Equal(t, []string{FuncCleanup, FuncInit, FuncSetoptLong}, names)
		names[0] = "mutated"
		assert.Equal(t, FuncCleanup, reg.Names()[0])
		assert.True(t, reg.Has(FuncInit))
		assert.False(t, reg.Has(FuncReset))
	})

	t.Run("typed handler", func(t *testing.T) {
		reg, err := NewRegistry(WithHandler("echo_info", func(_ context.Context, req GetinfoRequest) TextResponse {
			return TextResponse{Value: req.Info}
		}))
		require.NoError(t, err)
		out, err := reg.Invoke(context.Background(), "echo_info", []byte(`{"info":"CURLINFO_PRIMARY_IP"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":"CURLINFO_PRIMARY_IP"}`, string(out))
	})
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	var captured Call
	reg, err := NewRegistry(WithByteHandler("echo", func(ctx context.Context, payload []byte) ([]byte, error) {
		captured, _ = CallFromContext(ctx)
		return append([]byte("echo:"), payload...), nil
	}))
	require.NoError(t, err)

	ctx := WithCall(context.Background(), Call{Guest: "plugin.wasm"})
	resp, err := reg.Invoke(ctx, "echo", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "echo:hello", string(resp))
	assert.Equal(t, "echo", captured.Function)
	assert.Equal(t, "plugin.wasm", captured.Guest)
	assert.NotEmpty(t, captured.ID)
	assert.False(t, captured.Started.IsZero())

	first := captured.ID
	_, err = reg.Invoke(ctx, "echo", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, captured.ID)

	resp, err = reg.Invoke(context.Background(), "curl_easy_bogus", nil)
	require.NoError(t, err)
	var notFound BoolResponse
	require.NoError(t, json.Unmarshal(resp, &notFound))
	assert.False(t, notFound.OK)
	require.NotNil(t, notFound.Error)
	assert.True(t, notFound.Error.IsNotFound)
	assert.Equal(t, "unknown host function: curl_easy_bogus", notFound.Error.Message)
}

func TestMiddleware_Order(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				calls = append(calls, name+"-before")
				resp, err := next(ctx, payload)
				calls = append(calls, name+"-after")
				return resp, err
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(tag("mw1"), tag("mw2")),
		WithByteHandler("test", func(context.Context, []byte) ([]byte, error) {
			calls = append(calls, "handler")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "test", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}, calls)
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(func(context.Context, []byte) ([]byte, error) {
		panic("engine exploded")
	})

	resp, err := wrapped(context.Background(), nil)
	require.NoError(t, err)

	var out VoidResponse
	require.NoError(t, json.Unmarshal(resp, &out))
	require.NotNil(t, out.Error)
	assert.Equal(t, "panic", out.Error.Type)
	assert.Equal(t, "panic: engine exploded", out.Error.Message)
}

func TestSlogMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(
		WithMiddleware(SlogMiddleware(logger)),
		WithByteHandler(FuncInit, nopHandler),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(WithCall(context.Background(), Call{Guest: "g1"}), FuncInit, nil)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "host function completed", entry["msg"])
	assert.Equal(t, FuncInit, entry["function"])
	assert.Equal(t, "g1", entry["guest"])
	assert.NotEmpty(t, entry["call_id"])
	assert.Contains(t, entry, "duration")
}
