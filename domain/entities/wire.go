package entities

// Wire types are the JSON request and response bodies shared by the host
// functions and guest code calling them.

import "time"

// EmptyRequest is the request of operations that take no arguments.
type EmptyRequest struct{}

// SlistAppendRequest appends "name: value" to the header list.
type SlistAppendRequest struct {
	Name  *string `json:"name" validate:"required" jsonschema:"description=Header name"`
	Value *string `json:"value" validate:"required" jsonschema:"description=Header value"`
}

// MimeNameDataRequest adds a multipart/form-data part.
type MimeNameDataRequest struct {
	Name *string `json:"name" validate:"required" jsonschema:"description=Form field name"`
	Data *string `json:"data" validate:"required" jsonschema:"description=Inline part data; ends at the first NUL"`
}

// SetoptCharRequest sets a text option by name.
type SetoptCharRequest struct {
	Option *string `json:"option" validate:"required" jsonschema:"description=Option name such as CURLOPT_URL (case-insensitive prefix match)"`
	Value  *string `json:"value" validate:"required"`
}

// SetoptLongRequest sets an integer option by name.
type SetoptLongRequest struct {
	Option *string `json:"option" validate:"required" jsonschema:"description=Option name such as CURLOPT_TIMEOUT_MS (case-insensitive prefix match)"`
	Value  *int64  `json:"value" validate:"required"`
}

// GetinfoRequest reads a transfer info value by name.
type GetinfoRequest struct {
	Info *string `json:"info" validate:"required" jsonschema:"description=Info name such as CURLINFO_RESPONSE_CODE"`
}

// BoolResponse is the result of operations returning a boolean.
type BoolResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	OK    bool         `json:"ok"`
}

// VoidResponse is the result of operations returning nothing.
type VoidResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
}

// TextResponse carries a text value; a nil Value is SQL NULL.
type TextResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Value *string      `json:"value"`
}

// LongResponse carries an integer value.
type LongResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Value int64        `json:"value"`
}

// LogMessageWire is the JSON wire format of a guest log record.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
}

// LogAttrWire represents a single slog attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "uint64", "bool", "float64", "time", "duration", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}
