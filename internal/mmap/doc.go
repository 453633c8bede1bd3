// Package mmap provides anonymous memory mappings for off-heap storage.
//
// # Overview
//
// Anonymous mappings live outside the Go heap. The garbage collector neither
// scans nor moves them, which makes them a good home for large pointer-free
// index arrays that stay alive for the lifetime of a table.
//
// # Usage
//
//	m, err := mmap.MapAnon(size)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // zero-filled, read-write
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) for hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advice is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure
// nothing touches Bytes() after Close() returns.
package mmap
