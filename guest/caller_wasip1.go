//go:build wasip1

package guest

import (
	"context"
	"fmt"

	"github.com/RekGRpth/pg-curl-sub000/internal/abi"
)

//go:wasmimport curl_host curl_easy_init
func hostCurlEasyInit(packed uint64) uint64

//go:wasmimport curl_host curl_easy_reset
func hostCurlEasyReset(packed uint64) uint64

//go:wasmimport curl_host curl_slist_append
func hostCurlSlistAppend(packed uint64) uint64

//go:wasmimport curl_host curl_mime_name_data
func hostCurlMimeNameData(packed uint64) uint64

//go:wasmimport curl_host curl_easy_setopt_char
func hostCurlEasySetoptChar(packed uint64) uint64

//go:wasmimport curl_host curl_easy_setopt_long
func hostCurlEasySetoptLong(packed uint64) uint64

//go:wasmimport curl_host curl_easy_perform
func hostCurlEasyPerform(packed uint64) uint64

//go:wasmimport curl_host curl_easy_getinfo_char
func hostCurlEasyGetinfoChar(packed uint64) uint64

//go:wasmimport curl_host curl_easy_getinfo_long
func hostCurlEasyGetinfoLong(packed uint64) uint64

//go:wasmimport curl_host curl_easy_cleanup
func hostCurlEasyCleanup(packed uint64) uint64

var hostFuncs = map[string]func(uint64) uint64{
	FuncInit:         hostCurlEasyInit,
	FuncReset:        hostCurlEasyReset,
	FuncSlistAppend:  hostCurlSlistAppend,
	FuncMimeNameData: hostCurlMimeNameData,
	FuncSetoptChar:   hostCurlEasySetoptChar,
	FuncSetoptLong:   hostCurlEasySetoptLong,
	FuncPerform:      hostCurlEasyPerform,
	FuncGetinfoChar:  hostCurlEasyGetinfoChar,
	FuncGetinfoLong:  hostCurlEasyGetinfoLong,
	FuncCleanup:      hostCurlEasyCleanup,
}

// HostCaller calls the functions imported from the curl_host module.
type HostCaller struct{}

// Call implements Caller.
func (HostCaller) Call(_ context.Context, name string, payload []byte) ([]byte, error) {
	fn, ok := hostFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown host function %q", name)
	}

	req := abi.PtrFromBytes(payload)
	resp := fn(req)
	abi.DeallocatePacked(req)

	if resp == 0 {
		return nil, fmt.Errorf("%s: host returned no response", name)
	}
	data := abi.BytesFromPtr(resp)
	abi.DeallocatePacked(resp)
	return data, nil
}
