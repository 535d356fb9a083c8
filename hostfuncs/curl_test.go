package hostfuncs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RekGRpth/pg-curl-sub000/application/session"
	"github.com/RekGRpth/pg-curl-sub000/infrastructure/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCurlRegistry(t *testing.T) *HandlerRegistry {
	t.Helper()
	engine := transfer.NewEngine()
	require.NoError(t, engine.GlobalInit())
	s := session.New(engine)
	t.Cleanup(func() {
		s.Close()
		engine.GlobalCleanup()
	})

	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBundle(CurlBundle(s)),
	)
	require.NoError(t, err)
	return reg
}

func invoke[Resp any](t *testing.T, reg *HandlerRegistry, name string, req any) Resp {
	t.Helper()
	var payload []byte
	if req != nil {
		var err error
		payload, err = json.Marshal(req)
		require.NoError(t, err)
	}
	out, err := reg.Invoke(context.Background(), name, payload)
	require.NoError(t, err)

	var resp Resp
	require.NoError(t, json.Unmarshal(out, &resp), string(out))
	return resp
}

func TestCurlBundle_Names(t *testing.T) {
	handlers := CurlBundle(session.New(transfer.NewEngine())).Handlers()
	assert.Len(t, handlers, 11)
	for _, op := range CurlOperations() {
		assert.Contains(t, handlers, op.Name)
	}
	assert.Contains(t, handlers, FuncDescribe)
}

func TestCurl_GetRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bar", r.Header.Get("X-Foo"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "hello")
	}))
	defer srv.Close()

	reg := newCurlRegistry(t)

	assert.True(t, invoke[BoolResponse](t, reg, FuncInit, nil).OK)
	assert.True(t, invoke[BoolResponse](t, reg, FuncSlistAppend, map[string]any{"name": "X-Foo", "value": "bar"}).OK)
	assert.True(t, invoke[BoolResponse](t, reg, FuncSetoptChar, map[string]any{"option": "CURLOPT_URL", "value": srv.URL}).OK)
	assert.True(t, invoke[BoolResponse](t, reg, FuncSetoptLong, map[string]any{"option": "CURLOPT_TIMEOUT", "value": 10}).OK)
	assert.True(t, invoke[BoolResponse](t, reg, FuncPerform, EmptyRequest{}).OK)

	code := invoke[LongResponse](t, reg, FuncGetinfoLong, map[string]any{"info": "CURLINFO_RESPONSE_CODE"})
	assert.Nil(t, code.Error)
	assert.Equal(t, int64(200), code.Value)

	body := invoke[TextResponse](t, reg, FuncGetinfoChar, map[string]any{"info": "CURLINFO_RESPONSE"})
	require.NotNil(t, body.Value)
	assert.Equal(t, "hello", *body.Value)

	ct := invoke[TextResponse](t, reg, FuncGetinfoChar, map[string]any{"info": "curlinfo_content_type"})
	require.NotNil(t, ct.Value)
	assert.Equal(t, "text/plain; charset=utf-8", *ct.Value)

	assert.Nil(t, invoke[VoidResponse](t, reg, FuncCleanup, nil).Error)
}

func TestCurl_NullContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reg := newCurlRegistry(t)
	invoke[BoolResponse](t, reg, FuncInit, nil)
	invoke[BoolResponse](t, reg, FuncSetoptChar, map[string]any{"option": "CURLOPT_URL", "value": srv.URL})
	require.True(t, invoke[BoolResponse](t, reg, FuncPerform, nil).OK)

	ct := invoke[TextResponse](t, reg, FuncGetinfoChar, map[string]any{"info": "CURLINFO_CONTENT_TYPE"})
	assert.Nil(t, ct.Error)
	assert.Nil(t, ct.Value)
}

func TestCurl_NullArguments(t *testing.T) {
	reg := newCurlRegistry(t)
	invoke[BoolResponse](t, reg, FuncInit, nil)

	tests := []struct {
		name     string
		fn       string
		req      map[string]any
		position int
		argName  string
	}{
		{"slist value", FuncSlistAppend, map[string]any{"name": "X-Foo"}, 2, "value"},
		{"slist name", FuncSlistAppend, map[string]any{"value": "bar"}, 1, "name"},
		{"mime data", FuncMimeNameData, map[string]any{"name": "f", "data": nil}, 2, "data"},
		{"setopt char option", FuncSetoptChar, map[string]any{"value": "x"}, 1, "option"},
		{"setopt long value", FuncSetoptLong, map[string]any{"option": "CURLOPT_TIMEOUT"}, 2, "value"},
		{"getinfo char", FuncGetinfoChar, map[string]any{}, 1, "info"},
		{"getinfo long", FuncGetinfoLong, map[string]any{}, 1, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := invoke[struct {
				Error *struct {
					Message string         `json:"message"`
					Code    string         `json:"code"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}](t, reg, tt.fn, tt.req)

			require.NotNil(t, resp.Error)
			assert.Equal(t, "null_argument", resp.Error.Code)
			assert.Contains(t, resp.Error.Message, "null argument")
			assert.Equal(t, float64(tt.position), resp.Error.Details["position"])
			assert.Equal(t, tt.argName, resp.Error.Details["name"])
		})
	}
}

func TestCurl_StateErrors(t *testing.T) {
	reg := newCurlRegistry(t)

	resp := invoke[BoolResponse](t, reg, FuncPerform, nil)
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_initialised", resp.Error.Code)

	assert.True(t, invoke[BoolResponse](t, reg, FuncInit, nil).OK)
	resp = invoke[BoolResponse](t, reg, FuncInit, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "already_initialised", resp.Error.Code)

	resp = invoke[BoolResponse](t, reg, FuncSetoptChar, map[string]any{"option": "CURLOPT_BOGUS", "value": "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unsupported option CURLOPT_BOGUS", resp.Error.Message)
	assert.True(t, resp.Error.IsNotFound)

	resp = invoke[BoolResponse](t, reg, FuncSetoptChar, map[string]any{"option": "CURLOPT_TLSAUTH_USERNAME", "value": "u"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "engine_error", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "CURLOPT_TLSAUTH_USERNAME")
	assert.Equal(t, float64(transfer.NotBuiltIn), resp.Error.Details["engine_code"])

	reset := invoke[VoidResponse](t, reg, FuncReset, nil)
	assert.Nil(t, reset.Error)
}

func TestDescribe(t *testing.T) {
	resp := Describe(context.Background(), EmptyRequest{})
	require.Nil(t, resp.Error)
	require.Len(t, resp.Operations, 10)
	assert.Equal(t, FuncInit, resp.Operations[0].Name)
	assert.Contains(t, resp.StringOptions, "CURLOPT_URL")
	assert.Contains(t, resp.LongOptions, "CURLOPT_TIMEOUT_MS")
	assert.Contains(t, resp.CharInfos, "CURLINFO_RESPONSE")
	assert.Contains(t, resp.LongInfos, "CURLINFO_RESPONSE_CODE")

	var setopt map[string]any
	require.NoError(t, json.Unmarshal(resp.Operations[4].Request, &setopt))
	props, ok := setopt["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "option")
	assert.Contains(t, props, "value")
}
