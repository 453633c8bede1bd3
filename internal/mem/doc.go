// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte (cache line) aligned allocation for pointer-free element
// types. Index arrays allocated this way never share a cache line with
// unrelated heap objects.
package mem
