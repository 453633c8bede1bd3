// Package scalar provides a fixed-capacity buffer for pointer-free element types.
//
// An Array is allocated once at construction and never grows. It is always
// handled by pointer and carries a noCopy marker, so `go vet` flags
// accidental copies of what must be a uniquely owned backing store.
//
// Two backings are available:
//
//   - Heap: a 64-byte aligned Go allocation (internal/mem). The GC frees it.
//   - OffHeap: an anonymous mapping (internal/mmap) outside the Go heap. It
//     must be released with Close.
//
// Element types must not contain pointers. Off-heap memory is invisible to
// the garbage collector, and the heap backing is a reinterpreted []byte, so
// a pointer stored in either would not keep its target alive.
package scalar
