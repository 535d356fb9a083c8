//go:build wasip1

package guest

import "github.com/RekGRpth/pg-curl-sub000/internal/abi"

//go:wasmimport curl_host log_message
func hostLogMessage(packed uint64)

func hostLogSink(data []byte) {
	packed := abi.PtrFromBytes(data)
	hostLogMessage(packed)
	abi.DeallocatePacked(packed)
}
