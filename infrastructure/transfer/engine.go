// Package transfer implements the URL-transfer engine port on top of net/http.
//
// An Engine hands out easy handles. Each handle accumulates typed options, then
// Perform runs one synchronous HTTP or HTTPS transfer, feeding the request body from
// the read callback, handing response bytes to the write callback and polling the
// progress callback so the caller can abort. Failures are reported as *Error values
// carrying a libcurl-compatible Code.
package transfer

import (
	"log/slog"
	"sync"

	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
)

// Engine is the process-wide transfer engine.
type Engine struct {
	logger      *slog.Logger
	mu          sync.Mutex
	initialised bool
}

var _ ports.TransferEngine = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used by the engine and its handles.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine. GlobalInit must be called before NewEasy.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GlobalInit prepares the engine for use. Calling it twice is harmless.
func (e *Engine) GlobalInit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialised = true
	return nil
}

// GlobalCleanup stops the engine from handing out new handles.
func (e *Engine) GlobalCleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialised = false
}

// NewEasy returns a fresh handle, or nil when the engine is not initialised.
func (e *Engine) NewEasy() ports.EasyHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialised {
		return nil
	}
	return newHandle(e.logger)
}
