package host_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RekGRpth/pg-curl-sub000/config"
	"github.com/RekGRpth/pg-curl-sub000/host"
	"github.com/RekGRpth/pg-curl-sub000/hostfuncs"
	"github.com/RekGRpth/pg-curl-sub000/internal/wasmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := host.NewExecutor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "curl_host", e.ModuleName())
	assert.NoError(t, e.Close(ctx))
}

func curlGuest(module string) []byte {
	funcs := []wasmtest.Func{{Name: "log_message", NoResult: true}}
	for _, op := range hostfuncs.CurlOperations() {
		funcs = append(funcs, wasmtest.Call(op.Name))
	}
	return wasmtest.Guest(module, funcs...)
}

func loadGuest(t *testing.T, cfg config.Config) (*host.Module, *host.Guest) {
	t.Helper()
	ctx := context.Background()

	m, err := host.Load(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	e, err := host.NewExecutor(ctx, host.WithModule(m))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(ctx) })

	g, err := e.LoadGuest(ctx, "report", curlGuest(cfg.ModuleName))
	require.NoError(t, err)
	assert.Equal(t, "report", g.Name())
	return m, g
}

func guestCall[Resp any](t *testing.T, g *host.Guest, export string, req any) Resp {
	t.Helper()
	var payload []byte
	if req != nil {
		var err error
		payload, err = json.Marshal(req)
		require.NoError(t, err)
	}
	out, err := g.Call(context.Background(), export, payload)
	require.NoError(t, err)

	var resp Resp
	require.NoError(t, json.Unmarshal(out, &resp), string(out))
	return resp
}

func TestExecutor_GuestTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Api-Key"))
		_, _ = io.WriteString(w, "guest says hi")
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.HandleInterrupt = false
	_, g := loadGuest(t, cfg)

	assert.True(t, guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncInit, nil).OK)
	assert.True(t, guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncSlistAppend,
		map[string]any{"name": "X-Api-Key", "value": "token"}).OK)
	assert.True(t, guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncSetoptChar,
		map[string]any{"option": "CURLOPT_URL", "value": srv.URL}).OK)
	assert.True(t, guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncPerform, nil).OK)

	code := guestCall[hostfuncs.LongResponse](t, g, hostfuncs.FuncGetinfoLong, map[string]any{"info": "CURLINFO_RESPONSE_CODE"})
	assert.Equal(t, int64(200), code.Value)

	body := guestCall[hostfuncs.TextResponse](t, g, hostfuncs.FuncGetinfoChar, map[string]any{"info": "CURLINFO_RESPONSE"})
	require.NotNil(t, body.Value)
	assert.Equal(t, "guest says hi", *body.Value)

	assert.Nil(t, guestCall[hostfuncs.VoidResponse](t, g, hostfuncs.FuncCleanup, nil).Error)
}

func TestExecutor_CustomModuleName(t *testing.T) {
	cfg := config.Default()
	cfg.HandleInterrupt = false
	cfg.ModuleName = "pg_curl"
	_, g := loadGuest(t, cfg)

	assert.True(t, guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncInit, nil).OK)
}

func TestExecutor_RequestLimit(t *testing.T) {
	cfg := config.Default()
	cfg.HandleInterrupt = false
	cfg.MaxRequestSize = 16
	_, g := loadGuest(t, cfg)

	guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncInit, nil)
	resp := guestCall[hostfuncs.BoolResponse](t, g, hostfuncs.FuncSetoptChar,
		map[string]any{"option": "CURLOPT_URL", "value": "http://localhost/a/long/path"})
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation", resp.Error.Type)
	assert.Contains(t, resp.Error.Message, "exceeds maximum 16 bytes")
}

func TestExecutor_GuestErrors(t *testing.T) {
	ctx := context.Background()
	e, err := host.NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.LoadGuest(ctx, "broken", []byte("not wasm"))
	assert.Error(t, err)

	g, err := e.LoadGuest(ctx, "empty", wasmtest.Guest("curl_host"))
	require.NoError(t, err)
	_, err = g.Call(ctx, "missing", nil)
	assert.ErrorContains(t, err, `export "missing" not found`)
	require.NoError(t, g.Close(ctx))
}
