package session

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadySession(t *testing.T, opts ...Option) (*Session, *fakeEngine) {
	t.Helper()
	engine := &fakeEngine{}
	s := New(engine, opts...)
	require.NoError(t, s.Init(context.Background()))
	return s, engine
}

func TestSession_NotInitialised(t *testing.T) {
	ctx := context.Background()
	check := func(t *testing.T, s *Session) {
		t.Helper()
		var notInit *domainerrors.NotInitialisedError

		assert.ErrorAs(t, s.Reset(ctx), &notInit)
		assert.ErrorAs(t, s.SlistAppend("X-A", "b"), &notInit)
		assert.ErrorAs(t, s.MimeNameData("f", "v"), &notInit)
		assert.ErrorAs(t, s.SetoptChar("CURLOPT_URL", "http://x"), &notInit)
		assert.ErrorAs(t, s.SetoptLong("CURLOPT_TIMEOUT", 1), &notInit)
		assert.ErrorAs(t, s.Perform(ctx), &notInit)
		_, _, err := s.GetinfoChar("CURLINFO_RESPONSE")
		assert.ErrorAs(t, err, &notInit)
		_, err = s.GetinfoLong("CURLINFO_RESPONSE_CODE")
		assert.ErrorAs(t, err, &notInit)
		assert.ErrorAs(t, s.Cleanup(ctx), &notInit)
	}

	t.Run("fresh", func(t *testing.T) {
		engine := &fakeEngine{}
		s := New(engine)
		assert.Equal(t, entities.StateUninitialised, s.State())
		check(t, s)
		assert.Empty(t, engine.handles)
	})

	t.Run("after cleanup", func(t *testing.T) {
		s, _ := newReadySession(t)
		require.NoError(t, s.Cleanup(ctx))
		assert.Equal(t, entities.StateClosed, s.State())
		check(t, s)
	})
}

func TestSession_InitTwice(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	first := s.ID()

	var already *domainerrors.AlreadyInitialisedError
	assert.ErrorAs(t, s.Init(ctx), &already)
	assert.Len(t, engine.handles, 1)

	require.NoError(t, s.Perform(ctx))
	assert.ErrorAs(t, s.Init(ctx), &already)

	require.NoError(t, s.Reset(ctx))
	assert.ErrorAs(t, s.Init(ctx), &already)

	require.NoError(t, s.Cleanup(ctx))
	require.NoError(t, s.Init(ctx))
	assert.NotEqual(t, first, s.ID())
	assert.Len(t, engine.handles, 2)
	assert.True(t, engine.handles[0].cleaned)
}

func TestSession_InitEngineFailure(t *testing.T) {
	s := New(&fakeEngine{failNew: true})
	err := s.Init(context.Background())

	var engineErr *domainerrors.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Contains(t, err.Error(), "engine init failed")
	assert.Equal(t, entities.StateUninitialised, s.State())
}

func TestSession_StateTransitions(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	assert.Equal(t, entities.StateReady, s.State())

	require.NoError(t, s.Perform(ctx))
	assert.Equal(t, entities.StatePerformed, s.State())

	require.NoError(t, s.Perform(ctx))
	assert.Equal(t, entities.StatePerformed, s.State())

	engine.last().performFn = func(context.Context, *fakeEasy) error { return errors.New("boom") }
	require.Error(t, s.Perform(ctx))
	assert.Equal(t, entities.StatePerformed, s.State())

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, entities.StateReady, s.State())
}

func TestSession_PerformAppliesOptionsInOrder(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)

	require.NoError(t, s.SlistAppend("X-Foo", "bar"))
	require.NoError(t, s.MimeNameData("field1", "value1"))
	require.NoError(t, s.Perform(ctx))

	assert.Equal(t, []string{
		"long NOPROGRESS=0",
		"long PROTOCOLS=3",
		"write",
		"xferinfo",
		"headers 1",
		"mime 1",
		"perform",
	}, engine.last().calls)
}

func TestSession_PerformWithoutHeadersOrForm(t *testing.T) {
	s, engine := newReadySession(t)
	require.NoError(t, s.Perform(context.Background()))

	assert.Equal(t, []string{
		"long NOPROGRESS=0",
		"long PROTOCOLS=3",
		"write",
		"xferinfo",
		"perform",
	}, engine.last().calls)
}

func TestSession_UnknownOptionMakesNoEngineCall(t *testing.T) {
	s, engine := newReadySession(t)
	h := engine.last()

	err := s.SetoptChar("CURLOPT_BOGUS", "x")
	var unsupported *domainerrors.UnsupportedOptionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "unsupported option CURLOPT_BOGUS", err.Error())

	assert.ErrorAs(t, s.SetoptChar("CURLOPT_TIMEOUT_MS", "100"), &unsupported)
	assert.ErrorAs(t, s.SetoptLong("CURLOPT_URL", 0), &unsupported)
	_, _, err = s.GetinfoChar("CURLINFO_NOPE")
	assert.ErrorAs(t, err, &unsupported)
	_, err = s.GetinfoLong("CURLINFO_CONTENT_TYPE")
	assert.ErrorAs(t, err, &unsupported)

	assert.Empty(t, h.calls)
	assert.Equal(t, entities.StateReady, s.State())
}

func TestSession_SetoptDispatch(t *testing.T) {
	s, engine := newReadySession(t)
	h := engine.last()

	require.NoError(t, s.SetoptChar("curlopt_proxy_cainfo", "/etc/proxy.pem"))
	require.NoError(t, s.SetoptLong("CURLOPT_TIMEOUT_MS", 250))

	assert.Equal(t, "/etc/proxy.pem", h.strOpts[entities.OptProxyCAInfo])
	assert.NotContains(t, h.strOpts, entities.OptProxy)
	assert.Equal(t, int64(250), h.longOpts[entities.OptTimeoutMS])
	assert.NotContains(t, h.longOpts, entities.OptTimeout)
}

func TestSession_EngineErrorCarriesOptionName(t *testing.T) {
	s, engine := newReadySession(t)
	engine.last().optErr = errors.New("bad value")

	err := s.SetoptChar("CURLOPT_URL", "x")
	var engineErr *domainerrors.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "CURLOPT_URL", engineErr.Name)
	assert.Equal(t, "engine error: CURLOPT_URL: bad value", err.Error())
	assert.Equal(t, entities.StateReady, s.State())
}

func TestSession_ReadData(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	h := engine.last()

	var bodies []string
	h.performFn = func(_ context.Context, h *fakeEasy) error {
		p := make([]byte, 64)
		n := h.readFn(p)
		bodies = append(bodies, string(p[:n]))
		return nil
	}

	require.NoError(t, s.SetoptChar("CURLOPT_READDATA", "payload"))
	assert.Equal(t, int64(7), h.longOpts[entities.OptInFileSize])
	assert.Equal(t, int64(1), h.longOpts[entities.OptUpload])
	assert.NotNil(t, h.readFn)

	require.NoError(t, s.Perform(ctx))
	require.NoError(t, s.Perform(ctx))

	require.NoError(t, s.SetoptChar("CURLOPT_READDATA", "next"))
	assert.Equal(t, int64(4), h.longOpts[entities.OptInFileSize])
	require.NoError(t, s.Perform(ctx))

	assert.Equal(t, []string{"payload", "payload", "next"}, bodies)
}

func TestSession_ResponseAccumulates(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	engine.last().performFn = func(_ context.Context, h *fakeEasy) error {
		h.writeFn([]byte("chunk;"))
		return nil
	}

	require.NoError(t, s.Perform(ctx))
	require.NoError(t, s.Perform(ctx))

	body, ok, err := s.GetinfoChar("CURLINFO_RESPONSE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "chunk;chunk;", body)
}

func TestSession_FailedPerformDropsPartialResponse(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	h := engine.last()

	h.performFn = func(_ context.Context, h *fakeEasy) error {
		h.writeFn([]byte("complete"))
		return nil
	}
	require.NoError(t, s.Perform(ctx))

	h.performFn = func(_ context.Context, h *fakeEasy) error {
		h.writeFn([]byte("partial"))
		return errors.New("aborted")
	}
	require.Error(t, s.Perform(ctx))

	body, _, err := s.GetinfoChar("CURLINFO_RESPONSE")
	require.NoError(t, err)
	assert.Equal(t, "complete", body)
}

func TestSession_ResetClearsState(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	h := engine.last()
	h.performFn = func(_ context.Context, h *fakeEasy) error {
		h.writeFn([]byte("old response"))
		return nil
	}

	require.NoError(t, s.SlistAppend("X-Stale", "1"))
	require.NoError(t, s.MimeNameData("stale", "1"))
	require.NoError(t, s.Perform(ctx))
	oldMime := h.mime

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, 1, h.resets)
	assert.True(t, oldMime.freed)

	body, ok, err := s.GetinfoChar("CURLINFO_RESPONSE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, body)

	h.performFn = nil
	require.NoError(t, s.Perform(ctx))
	assert.Nil(t, h.headers)
	assert.Nil(t, h.mime)
	assert.NotContains(t, h.calls, "headers 1")
}

func TestSession_MimeNameDataStopsAtNUL(t *testing.T) {
	s, engine := newReadySession(t)
	require.NoError(t, s.MimeNameData("f", "abc\x00def"))
	require.NoError(t, s.Perform(context.Background()))

	mime := engine.last().mime
	require.NotNil(t, mime)
	assert.Equal(t, "abc", string(mime.parts[0].Data))
}

func TestSession_HeaderLimit(t *testing.T) {
	s, _ := newReadySession(t, WithMaxHeaders(1))
	require.NoError(t, s.SlistAppend("X-A", "1"))

	var allocErr *domainerrors.AllocatorError
	assert.ErrorAs(t, s.SlistAppend("X-B", "2"), &allocErr)
}

func TestSession_DefaultUserAgent(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t, WithDefaultUserAgent("pg-curl/1.0"))
	h := engine.last()
	assert.Equal(t, "pg-curl/1.0", h.strOpts[entities.OptUserAgent])

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, "pg-curl/1.0", h.strOpts[entities.OptUserAgent])
}

func TestSession_Getinfo(t *testing.T) {
	s, engine := newReadySession(t)
	h := engine.last()
	h.infoStr[entities.InfoContentType] = "text/plain"
	h.infoLong[entities.InfoResponseCode] = 404

	ct, ok, err := s.GetinfoChar("curlinfo_content_type")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "text/plain", ct)

	_, ok, err = s.GetinfoChar("CURLINFO_EFFECTIVE_URL")
	require.NoError(t, err)
	assert.False(t, ok)

	code, err := s.GetinfoLong("CURLINFO_RESPONSE_CODE")
	require.NoError(t, err)
	assert.Equal(t, int64(404), code)
}

func TestSession_InterruptClearedOnPerform(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	h := engine.last()

	var seen []int
	h.performFn = func(_ context.Context, h *fakeEasy) error {
		rc := h.xferFn(0, 0, 0, 0)
		seen = append(seen, rc)
		if rc != 0 {
			return errors.New("aborted by callback")
		}
		return nil
	}

	s.Interrupt().Raise(int32(syscall.SIGINT))
	require.NoError(t, s.Perform(ctx))

	h.performFn = func(_ context.Context, h *fakeEasy) error {
		s.Interrupt().Raise(int32(syscall.SIGINT))
		rc := h.xferFn(0, 0, 0, 0)
		seen = append(seen, rc)
		return errors.New("aborted by callback")
	}
	require.Error(t, s.Perform(ctx))

	assert.Equal(t, []int{0, int(syscall.SIGINT)}, seen)
}

func TestSession_CleanupReleases(t *testing.T) {
	ctx := context.Background()
	s, engine := newReadySession(t)
	h := engine.last()
	h.performFn = func(_ context.Context, h *fakeEasy) error {
		h.writeFn([]byte("data"))
		return nil
	}
	require.NoError(t, s.SetoptChar("CURLOPT_READDATA", "body"))
	require.NoError(t, s.MimeNameData("f", "v"))
	require.NoError(t, s.Perform(ctx))
	mime := h.mime

	require.NoError(t, s.Cleanup(ctx))
	assert.True(t, h.cleaned)
	assert.True(t, mime.freed)
	assert.Zero(t, s.readBuf.Len())
	assert.Zero(t, s.writeBuf.Len())
	assert.Zero(t, s.headers.Len())
	assert.False(t, s.form.Populated())
}

func TestSession_Close(t *testing.T) {
	s, engine := newReadySession(t)
	s.Close()
	assert.True(t, engine.last().cleaned)
	assert.Equal(t, entities.StateClosed, s.State())

	fresh := New(&fakeEngine{})
	fresh.Close()
	assert.Equal(t, entities.StateUninitialised, fresh.State())
}

func TestSession_ConcurrentCallsAreSerialised(t *testing.T) {
	s, engine := newReadySession(t)
	engine.last().performFn = func(_ context.Context, h *fakeEasy) error {
		h.writeFn([]byte("x"))
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SlistAppend("X-N", "v")
			_ = s.Perform(context.Background())
		}()
	}
	wg.Wait()

	body, _, err := s.GetinfoChar("CURLINFO_RESPONSE")
	require.NoError(t, err)
	assert.Len(t, body, 16)
}
