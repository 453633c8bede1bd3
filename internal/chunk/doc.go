// Package chunk provides a fixed-capacity value arena with stable local keys.
//
// A Chunk stores up to Cap() values of T densely in slots [0, Len()) and maps
// each stable local key in [0, Cap()) to its current slot through a
// sparse.IndexSet. Removal swaps the last live value into the vacated slot
// and zeroes the old last slot, so every operation is O(1) and live values
// stay contiguous for iteration.
//
// # Lifecycle
//
//	c, _ := chunk.New[T](size, scalar.Heap)
//	key, _ := c.Emplace(v)
//	...
//	c.Clear()
//	_ = c.Release() // ErrNotEmpty unless the chunk was emptied first
//
// # API Tiers
//
// Emplace, Remove and At check their preconditions and return errors. The
// *Unchecked variants skip the checks in release builds and assert them when
// built with -tags sptable_debug; a violated precondition then surfaces as a
// runtime panic rather than an error.
package chunk
