package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// HostFunc is a generic function signature for host functions.
// It accepts a context and a typed request, and returns a typed response.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler is a function that accepts raw bytes (JSON) and returns raw bytes (JSON).
// This is the common interface that WASM runtimes can easily use.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler.
// It handles the JSON unmarshalling of the request and marshalling of the response.
// An empty payload decodes as the zero request; malformed JSON yields a
// validation ErrorResponse instead of a Go error.
//
// Usage:
//
//	perform := hostfuncs.NewJSONHandler(handlers.Perform)
//
//	// In WASM runtime handler:
//	reqBytes := readMemory(ptr, len)
//	respBytes, err := perform(ctx, reqBytes)
//	writeMemory(respBytes)
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err)).ToJSON(), nil
			}
		}

		resp := fn(ctx, req)

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return respBytes, nil
	}
}
