// Package mem provides memory allocation utilities.
package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of every allocation (one cache line).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// Allocate size + alignment to ensure we can find an aligned offset
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// AllocAlignedSlice allocates a zeroed []T of length n with 64-byte alignment.
//
// T must not contain pointers: the backing array is a []byte, so the garbage
// collector does not scan it. Callers validate this before calling.
func AllocAlignedSlice[T any](n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 {
		return make([]T, n)
	}
	byteSlice := AllocAligned(n * elemSize)
	return BytesAs[T](byteSlice, n)
}

// BytesAs reinterprets buf as a []T of length n.
// buf must be at least n*sizeof(T) bytes and suitably aligned for T.
func BytesAs[T any](buf []byte, n int) []T {
	if n <= 0 || len(buf) == 0 {
		return nil
	}
	ptr := unsafe.Pointer(&buf[0])    //nolint:gosec // unsafe is required for typed views over raw memory
	return unsafe.Slice((*T)(ptr), n) //nolint:gosec // unsafe is required for typed views over raw memory
}
