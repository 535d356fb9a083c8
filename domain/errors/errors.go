// Package errors provides domain-specific error types for the curl host surface.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// NotInitialisedError is returned when an operation other than init runs without an
// active session.
type NotInitialisedError struct {
	Operation string
}

func (e *NotInitialisedError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: not initialised", e.Operation)
	}
	return "not initialised"
}

// Is matches any NotInitialisedError regardless of operation.
func (e *NotInitialisedError) Is(target error) bool {
	_, ok := target.(*NotInitialisedError)
	return ok
}

// ToErrorDetail implements DetailedError.
func (e *NotInitialisedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeState, Code: "not_initialised"}
}

// AlreadyInitialisedError is returned by init while a session is active.
type AlreadyInitialisedError struct{}

func (e *AlreadyInitialisedError) Error() string {
	return "already initialised"
}

// ToErrorDetail implements DetailedError.
func (e *AlreadyInitialisedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeState, Code: "already_initialised"}
}

// NullArgumentError reports a required argument that was absent.
// Position is 1-based.
type NullArgumentError struct {
	Operation string
	Name      string
	Position  int
}

func (e *NullArgumentError) Error() string {
	msg := fmt.Sprintf("null argument: parameter %d (%s) must not be null", e.Position, e.Name)
	if e.Operation != "" {
		return e.Operation + ": " + msg
	}
	return msg
}

// ToErrorDetail implements DetailedError.
func (e *NullArgumentError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    entities.ErrorTypeValidation,
		Code:    "null_argument",
		Details: map[string]any{"position": e.Position, "name": e.Name},
	}
}

// UnsupportedOptionError reports an option or info name missing from the registry.
type UnsupportedOptionError struct {
	Name string
}

func (e *UnsupportedOptionError) Error() string {
	return "unsupported option " + e.Name
}

// ToErrorDetail implements DetailedError.
func (e *UnsupportedOptionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message:    e.Error(),
		Type:       entities.ErrorTypeValidation,
		Code:       "unsupported_option",
		IsNotFound: true,
	}
}

// EngineError wraps a failure reported by the transfer engine.
// Name is the option or info name involved, empty for perform and init.
type EngineError struct {
	Err  error
	Name string
}

func (e *EngineError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("engine error: %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("engine error: %v", e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the wrapped engine failure was a timeout.
func (e *EngineError) Timeout() bool {
	if t, ok := e.Err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	return false
}

// ToErrorDetail implements DetailedError.
func (e *EngineError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeEngine, Code: "engine_error"}
	if c, ok := e.Err.(interface{ EngineCode() int }); ok {
		detail.Details = map[string]any{"engine_code": c.EngineCode()}
	}
	if e.Timeout() {
		detail.Type = entities.ErrorTypeTimeout
		detail.IsTimeout = true
	}
	return detail
}

// AllocatorError is returned when the header list cannot take another line.
type AllocatorError struct {
	Header string
}

func (e *AllocatorError) Error() string {
	return fmt.Sprintf("allocator error: cannot append header %q", e.Header)
}

// ToErrorDetail implements DetailedError.
func (e *AllocatorError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeInternal, Code: "allocator_error"}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}
