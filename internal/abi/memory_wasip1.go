//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// MaxTotalAllocations caps the memory pinned for host exchanges.
const MaxTotalAllocations = 64 << 20

// pinned keeps slices handed to the host reachable until deallocate.
var pinned = struct {
	sync.Mutex
	ptrs  map[uint32][]byte
	total int
}{
	ptrs: make(map[uint32][]byte),
}

// allocate is called by the host to obtain memory for a response.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	pinned.Lock()
	defer pinned.Unlock()

	if pinned.total+int(size) > MaxTotalAllocations {
		panic(fmt.Sprintf("abi: allocation limit exceeded (requested %d, pinned %d, limit %d)",
			size, pinned.total, MaxTotalAllocations))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0]))) //nolint:gosec // G103,G115: WASM32 linear memory address
	pinned.ptrs[ptr] = buf
	pinned.total += int(size)
	return ptr
}

// deallocate unpins memory. Unknown pointers are ignored.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, _ uint32) {
	pinned.Lock()
	defer pinned.Unlock()

	buf, ok := pinned.ptrs[ptr]
	if !ok {
		return
	}
	delete(pinned.ptrs, ptr)
	pinned.total -= len(buf)
}

// Pinned reports the number of bytes currently pinned.
func Pinned() int {
	pinned.Lock()
	defer pinned.Unlock()
	return pinned.total
}

// PtrFromBytes copies data into pinned memory and returns it packed.
// Empty data packs to 0.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data)) //nolint:gosec // G115: bounded by MaxTotalAllocations
	ptr := allocate(size)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size), data) //nolint:gosec // G103: WASM linear memory
	return PackPtrLen(ptr, size)
}

// BytesFromPtr copies the bytes a packed value points at.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length) //nolint:gosec // G103: WASM linear memory
	out := make([]byte, length)
	copy(out, src)
	return out
}

// DeallocatePacked unpins the memory a packed value points at.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}
