package entities

import "fmt"

// Error types carried in ErrorDetail.Type.
const (
	ErrorTypeState      = "state"
	ErrorTypeValidation = "validation"
	ErrorTypeEngine     = "engine"
	ErrorTypeTimeout    = "timeout"
	ErrorTypeConfig     = "config"
	ErrorTypePanic      = "panic"
	ErrorTypeInternal   = "internal"
)

// ErrorDetail is the error member of every host function response.
type ErrorDetail struct {
	// Details holds extra context, e.g. "position" and "name" for a null
	// argument or "engine_code" for an engine failure.
	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`

	// Stack is set for recovered panics.
	Stack []byte `json:"stack,omitempty"`

	IsTimeout  bool `json:"is_timeout,omitempty"`
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// Error implements the error interface as "type: message [code]".
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// Is matches another *ErrorDetail with the same Code, so a guest can test
// errors.Is(err, &entities.ErrorDetail{Code: "not_initialised"}).
func (e *ErrorDetail) Is(target error) bool {
	t, ok := target.(*ErrorDetail)
	return ok && e != nil && t.Code != "" && t.Code == e.Code
}

// EngineCode returns the engine result code of an engine error. JSON decoding
// turns it into a float64, which is handled here.
func (e *ErrorDetail) EngineCode() (int, bool) {
	if e == nil {
		return 0, false
	}
	switch v := e.Details["engine_code"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// NewErrorDetail creates an ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}
