// Package session implements the transfer session state machine: the easy handle,
// header list, multipart form and buffer pair behind the curl host functions.
package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
	"github.com/google/uuid"
)

var errEngineInit = errors.New("engine init failed")

// Session fronts one easy handle of the transfer engine. Every method holds the
// session lock for its whole duration, so a Session may be shared between
// goroutines but runs one operation at a time.
type Session struct {
	mu        sync.Mutex
	engine    ports.TransferEngine
	logger    *slog.Logger
	interrupt *Interrupt
	userAgent string

	id       uuid.UUID
	state    entities.State
	easy     ports.EasyHandle
	headers  *HeaderList
	form     *MultipartForm
	mime     ports.MimeForm
	readBuf  *ReadBuffer
	writeBuf *WriteBuffer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterrupt shares an interrupt bridge with the session.
func WithInterrupt(i *Interrupt) Option {
	return func(s *Session) {
		if i != nil {
			s.interrupt = i
		}
	}
}

// WithMaxHeaders caps the number of header lines per session.
func WithMaxHeaders(n int) Option {
	return func(s *Session) {
		s.headers = NewHeaderList(n)
	}
}

// WithMaxResponseSize caps the response buffer; 0 means unbounded.
func WithMaxResponseSize(n int) Option {
	return func(s *Session) {
		s.writeBuf = NewWriteBuffer(n)
	}
}

// WithDefaultUserAgent sets the User-Agent applied at init and reset.
func WithDefaultUserAgent(ua string) Option {
	return func(s *Session) {
		s.userAgent = ua
	}
}

// New creates an uninitialised session on top of engine. The buffers are allocated
// here and live as long as the session.
func New(engine ports.TransferEngine, opts ...Option) *Session {
	s := &Session{
		engine:    engine,
		logger:    slog.Default(),
		interrupt: NewInterrupt(),
		headers:   NewHeaderList(DefaultMaxHeaders),
		form:      &MultipartForm{},
		readBuf:   &ReadBuffer{},
		writeBuf:  NewWriteBuffer(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the lifecycle state.
func (s *Session) State() entities.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID identifies the current session; it changes on every Init.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Interrupt returns the interrupt bridge polled during Perform.
func (s *Session) Interrupt() *Interrupt {
	return s.interrupt
}

func (s *Session) requireActive(op string) error {
	if !s.state.Active() {
		return &domainerrors.NotInitialisedError{Operation: op}
	}
	return nil
}

func (s *Session) setState(ctx context.Context, state entities.State) {
	s.state = state
	s.logger.DebugContext(ctx, "session: state changed", "session", s.id, "state", state)
}

// Init starts a session with a fresh easy handle, empty header list and empty form.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active() {
		return &domainerrors.AlreadyInitialisedError{}
	}

	easy := s.engine.NewEasy()
	if easy == nil {
		return &domainerrors.EngineError{Err: errEngineInit}
	}

	s.easy = easy
	s.headers.Free()
	s.form = &MultipartForm{}
	s.readBuf.Reset()
	s.writeBuf.Reset()
	s.interrupt.Clear()
	s.id = uuid.New()

	if err := s.applyDefaults(); err != nil {
		s.easy.Cleanup()
		s.easy = nil
		return err
	}

	s.setState(ctx, entities.StateReady)
	return nil
}

// Reset restores the easy handle to its defaults, drops headers and form parts and
// truncates both buffers.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("reset"); err != nil {
		return err
	}

	s.easy.Reset()
	s.headers.Free()
	s.freeMime()
	s.form = &MultipartForm{}
	s.readBuf.Reset()
	s.writeBuf.Reset()

	if err := s.applyDefaults(); err != nil {
		return err
	}

	s.setState(ctx, entities.StateReady)
	return nil
}

func (s *Session) applyDefaults() error {
	if s.userAgent == "" {
		return nil
	}
	if err := s.easy.SetOptString(entities.OptUserAgent, s.userAgent); err != nil {
		return &domainerrors.EngineError{Name: "CURLOPT_USERAGENT", Err: err}
	}
	return nil
}

// SlistAppend appends a "name: value" request header line.
func (s *Session) SlistAppend(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("slist_append"); err != nil {
		return err
	}
	return s.headers.Append(name, value)
}

// MimeNameData adds a form-data part. data ends at its first NUL byte, if any.
func (s *Session) MimeNameData(name, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("mime_name_data"); err != nil {
		return err
	}
	b := []byte(data)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	s.form.AddPart(name, b)
	return nil
}

// SetoptChar sets a text option. CURLOPT_READDATA loads value into the read buffer
// and configures an upload of exactly that many bytes.
func (s *Session) SetoptChar(option, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("setopt_char"); err != nil {
		return err
	}
	entry, ok := LookupStringOption(option)
	if !ok {
		return &domainerrors.UnsupportedOptionError{Name: option}
	}

	if entry.Kind == entities.UploadSpecial {
		return s.setUpload(entry.Name, []byte(value))
	}
	if err := s.easy.SetOptString(entry.Option, value); err != nil {
		return &domainerrors.EngineError{Name: entry.Name, Err: err}
	}
	return nil
}

func (s *Session) setUpload(name string, body []byte) error {
	s.readBuf.Replace(body)

	if err := s.easy.SetOptLong(entities.OptInFileSize, int64(s.readBuf.Len())); err != nil {
		return &domainerrors.EngineError{Name: name, Err: err}
	}
	if err := s.easy.SetReadFunction(s.readBuf.Read); err != nil {
		return &domainerrors.EngineError{Name: name, Err: err}
	}
	if err := s.easy.SetOptLong(entities.OptUpload, 1); err != nil {
		return &domainerrors.EngineError{Name: name, Err: err}
	}
	return nil
}

// SetoptLong sets an integer option.
func (s *Session) SetoptLong(option string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("setopt_long"); err != nil {
		return err
	}
	entry, ok := LookupLongOption(option)
	if !ok {
		return &domainerrors.UnsupportedOptionError{Name: option}
	}
	if err := s.easy.SetOptLong(entry.Option, value); err != nil {
		return &domainerrors.EngineError{Name: entry.Name, Err: err}
	}
	return nil
}

// Perform runs the transfer and blocks until it ends. Response bytes are appended
// to the response buffer. The transfer aborts when ctx is cancelled or the
// interrupt flag is raised; a failed perform leaves the response buffer as it was
// before the call and the state unchanged.
func (s *Session) Perform(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("perform"); err != nil {
		return err
	}

	s.interrupt.Clear()
	s.readBuf.Rewind()

	if err := s.prepare(); err != nil {
		return err
	}

	mark := s.writeBuf.Len()
	if err := s.easy.Perform(ctx); err != nil {
		s.writeBuf.Truncate(mark)
		s.logger.WarnContext(ctx, "session: perform failed", "session", s.id, "error", err)
		return &domainerrors.EngineError{Err: err}
	}

	s.setState(ctx, entities.StatePerformed)
	return nil
}

// prepare applies the options every perform needs, in a fixed order.
func (s *Session) prepare() error {
	if err := s.easy.SetOptLong(entities.OptNoProgress, 0); err != nil {
		return &domainerrors.EngineError{Name: "CURLOPT_NOPROGRESS", Err: err}
	}
	protocols := int64(entities.ProtoHTTP | entities.ProtoHTTPS)
	if err := s.easy.SetOptLong(entities.OptProtocols, protocols); err != nil {
		return &domainerrors.EngineError{Name: "CURLOPT_PROTOCOLS", Err: err}
	}
	if err := s.easy.SetWriteFunction(s.writeBuf.Write); err != nil {
		return &domainerrors.EngineError{Name: "CURLOPT_WRITEFUNCTION", Err: err}
	}
	if err := s.easy.SetXferInfoFunction(s.interrupt.Progress); err != nil {
		return &domainerrors.EngineError{Name: "CURLOPT_XFERINFOFUNCTION", Err: err}
	}
	if s.headers.Len() > 0 {
		if err := s.easy.SetHeaders(s.headers.Lines()); err != nil {
			return &domainerrors.EngineError{Name: "CURLOPT_HTTPHEADER", Err: err}
		}
	}
	if s.form.Populated() {
		s.freeMime()
		mime, err := s.form.Build(s.easy)
		if err != nil {
			return &domainerrors.EngineError{Name: "CURLOPT_MIMEPOST", Err: err}
		}
		s.mime = mime
		if err := s.easy.SetMimePost(mime); err != nil {
			return &domainerrors.EngineError{Name: "CURLOPT_MIMEPOST", Err: err}
		}
	}
	return nil
}

// GetinfoChar returns a text info value. ok is false when the engine has no value.
// CURLINFO_RESPONSE returns the response buffer.
func (s *Session) GetinfoChar(info string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("getinfo_char"); err != nil {
		return "", false, err
	}
	entry, ok := LookupCharInfo(info)
	if !ok {
		return "", false, &domainerrors.UnsupportedOptionError{Name: info}
	}
	if entry.Local {
		return s.writeBuf.String(), true, nil
	}
	value, ok, err := s.easy.InfoString(entry.Info)
	if err != nil {
		return "", false, &domainerrors.EngineError{Name: entry.Name, Err: err}
	}
	return value, ok, nil
}

// GetinfoLong returns an integer info value.
func (s *Session) GetinfoLong(info string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("getinfo_long"); err != nil {
		return 0, err
	}
	entry, ok := LookupLongInfo(info)
	if !ok {
		return 0, &domainerrors.UnsupportedOptionError{Name: info}
	}
	value, err := s.easy.InfoLong(entry.Info)
	if err != nil {
		return 0, &domainerrors.EngineError{Name: entry.Name, Err: err}
	}
	return value, nil
}

// Cleanup releases the easy handle, form and header list and truncates both
// buffers.
func (s *Session) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive("cleanup"); err != nil {
		return err
	}
	s.release()
	s.setState(ctx, entities.StateClosed)
	return nil
}

// Close releases whatever the session still holds, whatever its state. It is meant
// for module teardown.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.release()
	if s.state.Active() {
		s.state = entities.StateClosed
	}
}

func (s *Session) release() {
	if s.easy != nil {
		s.easy.Cleanup()
		s.easy = nil
	}
	s.freeMime()
	s.form = &MultipartForm{}
	s.headers.Free()
	s.readBuf.Reset()
	s.writeBuf.Reset()
}

func (s *Session) freeMime() {
	if s.mime != nil {
		s.mime.Free()
		s.mime = nil
	}
}
