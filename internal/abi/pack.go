// Package abi implements the guest side of the packed pointer/length calling
// convention used by the curl host functions.
package abi

import "fmt"

// PtrHighBits is the shift of the pointer half of a packed value.
const PtrHighBits = 32

// PackPtrLen packs a pointer and length into a single uint64.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: high half of a packed value
	length = uint32(packed)             //nolint:gosec // G115: low half of a packed value
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}
