package ports

import (
	"context"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
)

// ReadFunc is the upload read callback. It fills p and returns the number of bytes
// copied; zero signals end of the request body.
type ReadFunc func(p []byte) int

// WriteFunc is the download write callback. Returning less than len(p) makes the
// engine abort the transfer with a write error.
type WriteFunc func(p []byte) int

// XferInfoFunc is the progress callback polled by the engine during a transfer.
// A non-zero return aborts the transfer.
type XferInfoFunc func(dlTotal, dlNow, ulTotal, ulNow int64) int

// TransferEngine is the process-wide URL-transfer engine.
type TransferEngine interface {
	// GlobalInit prepares the engine for use. It must be called once before NewEasy.
	GlobalInit() error

	// GlobalCleanup releases engine-wide resources.
	GlobalCleanup()

	// NewEasy creates a fresh easy handle with default options.
	// It returns nil when the engine cannot create one.
	NewEasy() EasyHandle
}

// EasyHandle is one logical transfer: its configuration plus the state of its
// last perform.
type EasyHandle interface {
	// SetOptString sets a text option.
	SetOptString(opt entities.Option, value string) error

	// SetOptLong sets an integer option.
	SetOptLong(opt entities.Option, value int64) error

	// SetHeaders sets the request header lines ("Name: Value").
	SetHeaders(lines []string) error

	// SetMimePost makes the request a multipart/form-data POST of form.
	SetMimePost(form MimeForm) error

	// SetReadFunction installs the upload read callback.
	SetReadFunction(fn ReadFunc) error

	// SetWriteFunction installs the download write callback.
	SetWriteFunction(fn WriteFunc) error

	// SetXferInfoFunction installs the progress callback.
	SetXferInfoFunction(fn XferInfoFunc) error

	// NewMime creates an empty multipart form bound to this handle.
	NewMime() MimeForm

	// Perform runs the configured transfer synchronously.
	Perform(ctx context.Context) error

	// InfoString returns a text info value; ok is false when the value is unset.
	InfoString(info entities.Info) (value string, ok bool, err error)

	// InfoLong returns an integer info value.
	InfoLong(info entities.Info) (int64, error)

	// Reset restores every option to its default and forgets the last transfer.
	Reset()

	// Cleanup releases the handle. The handle must not be used afterwards.
	Cleanup()
}

// MimeForm is a multipart/form-data body under construction.
type MimeForm interface {
	// AddPart appends a part with the given field name and inline data.
	AddPart(name string, data []byte) error

	// Len returns the number of parts.
	Len() int

	// Free releases the form.
	Free()
}
