//go:build !wasip1

package guest

import (
	"context"
	"errors"
)

// ErrNotWasm is returned by HostCaller outside a wasip1 build.
var ErrNotWasm = errors.New("guest: curl host functions are only available under GOOS=wasip1")

// HostCaller stub for native builds.
type HostCaller struct{}

// Call implements Caller.
func (HostCaller) Call(context.Context, string, []byte) ([]byte, error) {
	return nil, ErrNotWasm
}
