package session

import (
	"context"
	"fmt"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
)

type fakeEngine struct {
	handles []*fakeEasy
	failNew bool
}

func (e *fakeEngine) GlobalInit() error { return nil }
func (e *fakeEngine) GlobalCleanup()    {}

func (e *fakeEngine) NewEasy() ports.EasyHandle {
	if e.failNew {
		return nil
	}
	h := newFakeEasy()
	e.handles = append(e.handles, h)
	return h
}

func (e *fakeEngine) last() *fakeEasy {
	return e.handles[len(e.handles)-1]
}

type fakeEasy struct {
	calls     []string
	strOpts   map[entities.Option]string
	longOpts  map[entities.Option]int64
	headers   []string
	mime      *fakeMime
	readFn    ports.ReadFunc
	writeFn   ports.WriteFunc
	xferFn    ports.XferInfoFunc
	infoStr   map[entities.Info]string
	infoLong  map[entities.Info]int64
	optErr    error
	performFn func(ctx context.Context, h *fakeEasy) error
	resets    int
	cleaned   bool
}

func newFakeEasy() *fakeEasy {
	return &fakeEasy{
		strOpts:  map[entities.Option]string{},
		longOpts: map[entities.Option]int64{},
		infoStr:  map[entities.Info]string{},
		infoLong: map[entities.Info]int64{},
	}
}

func (h *fakeEasy) record(format string, args ...any) {
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
}

func (h *fakeEasy) SetOptString(opt entities.Option, value string) error {
	h.record("string %s=%s", opt, value)
	if h.optErr != nil {
		return h.optErr
	}
	h.strOpts[opt] = value
	return nil
}

func (h *fakeEasy) SetOptLong(opt entities.Option, value int64) error {
	h.record("long %s=%d", opt, value)
	if h.optErr != nil {
		return h.optErr
	}
	h.longOpts[opt] = value
	return nil
}

func (h *fakeEasy) SetHeaders(lines []string) error {
	h.record("headers %d", len(lines))
	h.headers = lines
	return nil
}

func (h *fakeEasy) SetMimePost(form ports.MimeForm) error {
	h.record("mime %d", form.Len())
	h.mime = form.(*fakeMime)
	return nil
}

func (h *fakeEasy) SetReadFunction(fn ports.ReadFunc) error {
	h.record("read")
	h.readFn = fn
	return nil
}

func (h *fakeEasy) SetWriteFunction(fn ports.WriteFunc) error {
	h.record("write")
	h.writeFn = fn
	return nil
}

func (h *fakeEasy) SetXferInfoFunction(fn ports.XferInfoFunc) error {
	h.record("xferinfo")
	h.xferFn = fn
	return nil
}

func (h *fakeEasy) NewMime() ports.MimeForm {
	return &fakeMime{}
}

func (h *fakeEasy) Perform(ctx context.Context) error {
	h.record("perform")
	if h.performFn != nil {
		return h.performFn(ctx, h)
	}
	return nil
}

func (h *fakeEasy) InfoString(info entities.Info) (string, bool, error) {
	v, ok := h.infoStr[info]
	return v, ok, nil
}

func (h *fakeEasy) InfoLong(info entities.Info) (int64, error) {
	return h.infoLong[info], nil
}

func (h *fakeEasy) Reset() {
	h.resets++
	h.calls = nil
	h.strOpts = map[entities.Option]string{}
	h.longOpts = map[entities.Option]int64{}
	h.headers = nil
	h.mime = nil
	h.readFn, h.writeFn, h.xferFn = nil, nil, nil
}

func (h *fakeEasy) Cleanup() {
	h.cleaned = true
}

type fakeMime struct {
	parts []Part
	freed bool
}

func (m *fakeMime) AddPart(name string, data []byte) error {
	m.parts = append(m.parts, Part{Name: name, Data: data})
	return nil
}

func (m *fakeMime) Len() int { return len(m.parts) }
func (m *fakeMime) Free()    { m.freed = true }
