package hostfuncs

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
)

// ErrorResponse is the reply for calls that never reach a handler, or whose
// handler panicked. It has the same "error" member as every curl response, so
// guests decode it with the response type they expected.
type ErrorResponse struct {
	Error *entities.ErrorDetail `json:"error"`
}

// ToJSON serializes the response. It returns nil only if marshalling fails.
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError reports a request the host could not accept, such as
// malformed JSON or an oversized payload.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: &entities.ErrorDetail{
		Message: message,
		Type:    entities.ErrorTypeValidation,
		Code:    "bad_request",
	}}
}

// NewNotFoundError reports a call to an unregistered host function.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: &entities.ErrorDetail{
		Message:    "unknown host function: " + name,
		Type:       entities.ErrorTypeValidation,
		Code:       "unknown_function",
		IsNotFound: true,
	}}
}

// NewInternalError reports a host-side failure unrelated to the request.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: &entities.ErrorDetail{
		Message: message,
		Type:    entities.ErrorTypeInternal,
		Code:    "internal_error",
	}}
}

// NewPanicError converts a recovered panic value, capturing the stack of the
// calling goroutine.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return ErrorResponse{Error: &entities.ErrorDetail{
		Message: "panic: " + msg,
		Type:    entities.ErrorTypePanic,
		Code:    "panic",
		Stack:   debug.Stack(),
	}}
}
