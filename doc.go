// Package sptable provides a fixed-capacity, chunked object table that hands
// out stable integer handles.
//
// A Table stores values of any type T in up to MaxChunks chunks of ChunkSize
// values each. It guarantees O(1) insert, remove, membership test and
// handle-to-value lookup, and dense iteration over all live values. Typical
// uses are high-churn registries: entity/component storage, connection
// tables, resource pools.
//
// # Quick Start
//
//	t, err := sptable.New[string](2, 4) // 2 chunks of 4 values
//	if err != nil { ... }
//	defer t.Close()
//
//	alice, _ := t.Emplace("Alice")
//	bob, _ := t.Emplace("Bob")
//
//	name, _ := t.At(alice) // *string, valid until the next mutation
//	_ = t.Remove(bob)
//
//	for h, v := range t.All() {
//	    fmt.Println(h, *v)
//	}
//
// # Handles
//
// A Handle encodes chunkIndex*ChunkSize + slot. It stays valid across
// unrelated inserts and removes, even though values move in memory when a
// chunk compacts. Once its value is removed, a handle is dead and the same
// integer may be handed out again for a later insert.
//
// # Chunks
//
// A chunk is allocated when every existing chunk is full and released as soon
// as its last value is removed. Inserts prefer chunks that already have spare
// room, tracked in O(1) by a table-level sparse set. ChunkSize trades the
// cost of compaction (smaller chunks) against per-chunk bookkeeping (more
// chunks).
//
// # API Tiers
//
// Emplace, Remove and At validate their arguments and return ErrFull,
// ErrNotFound, ErrMemoryLimitExceeded or ErrClosed. MustEmplace panics instead
// of returning an error. RemoveUnchecked and AtUnchecked are the fast path for
// hot loops: they skip validation in release builds and assert when built
// with -tags sptable_debug. A violated precondition on the fast path is a
// programming error. In release builds it panics or silently corrupts the
// table's bookkeeping (a stale RemoveUnchecked may remove a different live
// value), but it never corrupts memory.
//
// # Concurrency
//
// A Table has no internal locking. Share one across goroutines only behind
// a single mutex covering the whole table. The optional collaborators
// (Logger, MetricsCollector, resource.Controller) are safe to share.
package sptable
