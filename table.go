package sptable

import (
	"errors"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/sptable/internal/assert"
	"github.com/hupe1980/sptable/internal/chunk"
	"github.com/hupe1980/sptable/internal/conv"
	"github.com/hupe1980/sptable/internal/sparse"
)

// Handle identifies one live value in a Table until that value is removed.
// A removed value's handle may later be reassigned to a different value.
//
// Handles encode chunkIndex*ChunkSize + slot. They are only meaningful to the
// table that issued them.
type Handle uint32

// Stats is a snapshot of a table's occupancy and lifetime counters.
type Stats struct {
	Len             int    // Current: live values
	Cap             int    // Fixed: MaxChunks * ChunkSize
	ChunkSize       int    // Fixed: values per chunk
	MaxChunks       int    // Fixed: chunk limit
	ActiveChunks    int    // Current: chunks holding at least one value
	NonFullChunks   int    // Current: chunks with spare room
	MemoryBytes     int    // Current: chunk storage plus table-level indexes
	ChunksAllocated uint64 // Historical: chunks ever allocated
	ChunksReleased  uint64 // Historical: chunks released after emptying
	Emplaces        uint64 // Historical: successful inserts
	Removes         uint64 // Historical: successful removes
}

// Table is a fixed-capacity collection of T addressed by stable handles.
//
// Values live in up to MaxChunks chunks of ChunkSize values each. Insert,
// remove, membership and lookup are O(1); iteration visits live values
// densely, chunk by chunk.
//
// A Table is not safe for concurrent use. Callers sharing one must guard the
// whole table with a single lock.
type Table[T any] struct {
	chunkSize int
	maxChunks int

	// chunks is the outer arena. Its stable local keys are the chunk indexes
	// encoded in handles.
	chunks *chunk.Chunk[*chunk.Chunk[T]]
	// nonFull holds the indexes of chunks with 0 < Len < ChunkSize.
	nonFull *sparse.IndexSet

	count      int
	chunkBytes int
	closed     bool

	chunksAllocated uint64
	chunksReleased  uint64
	emplaces        uint64
	removes         uint64

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// New creates an empty table holding at most maxChunks*chunkSize values.
// maxChunks*chunkSize must fit in a uint32.
func New[T any](maxChunks, chunkSize int, optFns ...Option) (*Table[T], error) {
	if maxChunks <= 0 {
		return nil, &ErrInvalidConfig{Field: "maxChunks", Value: maxChunks}
	}
	if chunkSize <= 0 {
		return nil, &ErrInvalidConfig{Field: "chunkSize", Value: chunkSize}
	}
	if _, err := conv.MulToUint32(maxChunks, chunkSize); err != nil {
		return nil, &ErrInvalidConfig{Field: "maxChunks", Value: maxChunks, cause: err}
	}

	o := applyOptions(optFns)

	chunks, err := chunk.New[*chunk.Chunk[T]](maxChunks, o.backing)
	if err != nil {
		return nil, translateError(err)
	}
	nonFull, err := sparse.New(maxChunks, o.backing)
	if err != nil {
		_ = chunks.Release()
		return nil, translateError(err)
	}

	return &Table[T]{
		chunkSize:  chunkSize,
		maxChunks:  maxChunks,
		chunks:     chunks,
		nonFull:    nonFull,
		chunkBytes: chunk.FootprintBytes[T](chunkSize),
		opts:       o,
		logger:     o.logger,
		metrics:    o.metricsCollector,
	}, nil
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	return t.count
}

// Cap returns the maximum number of values, MaxChunks*ChunkSize.
func (t *Table[T]) Cap() int {
	return t.maxChunks * t.chunkSize
}

// ChunkSize returns the number of values per chunk.
func (t *Table[T]) ChunkSize() int {
	return t.chunkSize
}

// MaxChunks returns the chunk limit.
func (t *Table[T]) MaxChunks() int {
	return t.maxChunks
}

// Chunks returns the number of allocated chunks.
func (t *Table[T]) Chunks() int {
	return t.chunks.Len()
}

// Locate splits a handle into its chunk index and slot within the chunk.
func (t *Table[T]) Locate(h Handle) (chunkIndex, slot int) {
	return int(h) / t.chunkSize, int(h) % t.chunkSize
}

func (t *Table[T]) handle(chunkIndex, slot int) Handle {
	return Handle(chunkIndex*t.chunkSize + slot) //nolint:gosec // bounded by Cap() <= MaxUint32
}

// Emplace stores v and returns its handle.
func (t *Table[T]) Emplace(v T) (Handle, error) {
	ci, c, err := t.target()
	if err != nil {
		t.metrics.RecordEmplace(err)
		return 0, err
	}
	return t.commitEmplace(ci, c, c.EmplaceUnchecked(v)), nil
}

// EmplaceFunc claims a zeroed slot, lets fn initialize it in place and
// returns its handle. fn must not mutate the table. If fn panics, the slot
// is given back and the table is left as it was.
func (t *Table[T]) EmplaceFunc(fn func(*T)) (Handle, error) {
	ci, c, err := t.target()
	if err != nil {
		t.metrics.RecordEmplace(err)
		return 0, err
	}

	done := false
	defer func() {
		// A chunk allocated for this insert is still empty after a panic.
		if !done && c.Len() == 0 {
			t.releaseChunk(ci, c)
		}
	}()
	slot := c.EmplaceFuncUnchecked(fn)
	done = true

	return t.commitEmplace(ci, c, slot), nil
}

// MustEmplace is like Emplace but panics if the value cannot be stored.
func (t *Table[T]) MustEmplace(v T) Handle {
	h, err := t.Emplace(v)
	if err != nil {
		panic(err)
	}
	return h
}

// target picks the chunk the next value goes into: any chunk with spare
// room, else a newly allocated one.
func (t *Table[T]) target() (int, *chunk.Chunk[T], error) {
	if t.closed {
		return 0, nil, ErrClosed
	}
	if n := t.nonFull.Len(); n > 0 {
		ci := t.nonFull.At(n - 1)
		return ci, *t.chunks.AtUnchecked(ci), nil
	}
	if t.chunks.Full() {
		t.logger.LogExhausted(t.count, t.Cap(), ErrFull)
		return 0, nil, ErrFull
	}
	return t.allocChunk()
}

func (t *Table[T]) allocChunk() (int, *chunk.Chunk[T], error) {
	if err := t.opts.memory.TryAcquireMemory(int64(t.chunkBytes)); err != nil {
		err = translateError(err)
		t.logger.LogExhausted(t.count, t.Cap(), err)
		return 0, nil, err
	}

	c, err := chunk.New[T](t.chunkSize, t.opts.backing)
	if err != nil {
		t.opts.memory.ReleaseMemory(int64(t.chunkBytes))
		return 0, nil, translateError(err)
	}

	ci := t.chunks.EmplaceUnchecked(c)
	t.chunksAllocated++
	t.metrics.RecordChunkAllocated(t.chunkBytes)
	t.logger.LogChunkAllocated(ci, t.chunkBytes, t.chunks.Len())
	return ci, c, nil
}

func (t *Table[T]) commitEmplace(ci int, c *chunk.Chunk[T], slot int) Handle {
	if c.Full() {
		if t.nonFull.Contains(ci) {
			t.nonFull.Remove(ci)
		}
	} else if !t.nonFull.Contains(ci) {
		t.nonFull.Insert(ci)
	}

	t.count++
	t.emplaces++
	t.metrics.RecordEmplace(nil)
	return t.handle(ci, slot)
}

// Contains reports whether h denotes a live value.
func (t *Table[T]) Contains(h Handle) bool {
	ci, slot := t.Locate(h)
	if !t.chunks.Contains(ci) {
		return false
	}
	return (*t.chunks.AtUnchecked(ci)).Contains(slot)
}

// At returns a pointer to the value denoted by h. The pointer is valid until
// the next Emplace or Remove on the table.
func (t *Table[T]) At(h Handle) (*T, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if !t.Contains(h) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	return t.AtUnchecked(h), nil
}

// Get returns a copy of the value denoted by h.
func (t *Table[T]) Get(h Handle) (T, bool) {
	if !t.Contains(h) {
		var zero T
		return zero, false
	}
	return *t.AtUnchecked(h), true
}

// AtUnchecked is At without the membership check. In release builds a stale
// handle yields whatever occupies its slot or panics; build with
// -tags sptable_debug to assert instead.
func (t *Table[T]) AtUnchecked(h Handle) *T {
	if assert.Enabled {
		assert.Thatf(t.Contains(h), "sptable: lookup of absent handle %d", h)
	}
	ci, slot := t.Locate(h)
	return (*t.chunks.AtUnchecked(ci)).AtUnchecked(slot)
}

// Remove deletes the value denoted by h. Another value in the same chunk may
// move in memory; its handle is unaffected.
func (t *Table[T]) Remove(h Handle) error {
	if t.closed {
		t.metrics.RecordRemove(ErrClosed)
		return ErrClosed
	}
	if !t.Contains(h) {
		err := fmt.Errorf("%w: %d", ErrNotFound, h)
		t.metrics.RecordRemove(err)
		return err
	}
	t.RemoveUnchecked(h)
	return nil
}

// RemoveUnchecked is Remove without the membership check. In release builds a
// stale handle may remove a different live value and leave Len out of step
// with the chunks.
func (t *Table[T]) RemoveUnchecked(h Handle) {
	if assert.Enabled {
		assert.Thatf(t.Contains(h), "sptable: remove of absent handle %d", h)
	}
	ci, slot := t.Locate(h)
	c := *t.chunks.AtUnchecked(ci)
	c.RemoveUnchecked(slot)

	t.count--
	t.removes++

	if c.Len() == 0 {
		t.releaseChunk(ci, c)
	} else if !t.nonFull.Contains(ci) {
		t.nonFull.Insert(ci)
	}

	t.metrics.RecordRemove(nil)
}

// releaseChunk drops an emptied chunk from the table.
func (t *Table[T]) releaseChunk(ci int, c *chunk.Chunk[T]) {
	c.Clear()
	err := c.Release()

	t.chunks.RemoveUnchecked(ci)
	if t.nonFull.Contains(ci) {
		t.nonFull.Remove(ci)
	}

	t.opts.memory.ReleaseMemory(int64(t.chunkBytes))
	t.chunksReleased++
	t.metrics.RecordChunkReleased(t.chunkBytes)
	t.logger.LogChunkReleased(ci, t.chunkBytes, t.chunks.Len(), err)
}

// Clear removes every value and releases every chunk.
func (t *Table[T]) Clear() {
	if t.closed {
		return
	}
	removed := t.count
	released := t.chunks.Len()

	for ci, c := range t.chunks.All() {
		(*c).Clear()
		if err := (*c).Release(); err != nil {
			t.logger.LogChunkReleased(ci, t.chunkBytes, released, err)
		}
		t.opts.memory.ReleaseMemory(int64(t.chunkBytes))
		t.metrics.RecordChunkReleased(t.chunkBytes)
	}

	t.chunks.Clear()
	t.nonFull.Reset()
	t.count = 0
	t.chunksReleased += uint64(released) //nolint:gosec // non-negative

	t.logger.LogClear(removed, released)
}

// Close clears the table and releases its indexes. Close is idempotent.
// Afterwards Emplace, At and Remove return ErrClosed, Contains reports false
// and the unchecked methods must not be called.
func (t *Table[T]) Close() error {
	if t.closed {
		return nil
	}
	t.Clear()
	t.closed = true
	return errors.Join(t.chunks.Release(), t.nonFull.Close())
}

// All yields every live value with its handle. Chunks are visited in
// allocation-slot order and values within a chunk in dense order, which
// removals permute. The table must not be mutated during iteration.
func (t *Table[T]) All() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for ci, c := range t.chunks.All() {
			for slot, v := range (*c).All() {
				if !yield(t.handle(ci, slot), v) {
					return
				}
			}
		}
	}
}

// Backward yields every live value with its handle, in the exact reverse of
// All's order.
func (t *Table[T]) Backward() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for ci, c := range t.chunks.Backward() {
			for slot, v := range (*c).Backward() {
				if !yield(t.handle(ci, slot), v) {
					return
				}
			}
		}
	}
}

// Values yields every live value, in the same order as All.
func (t *Table[T]) Values() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, c := range t.chunks.Values() {
			values := c.Values()
			for i := range values {
				if !yield(&values[i]) {
					return
				}
			}
		}
	}
}

// Handles yields every live handle, in the same order as All.
func (t *Table[T]) Handles() iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		for h := range t.All() {
			if !yield(h) {
				return
			}
		}
	}
}

// LiveHandles returns a compressed snapshot of every live handle.
// The bitmap is independent of the table and may be combined with
// snapshots of other tables using roaring set operations.
func (t *Table[T]) LiveHandles() *roaring.Bitmap {
	rb := roaring.New()
	if t.count == 0 {
		return rb
	}

	keys := make([]int, 0, t.chunkSize)
	buf := make([]uint32, 0, t.chunkSize)
	for ci, c := range t.chunks.All() {
		keys = (*c).AppendKeys(keys[:0])
		buf = buf[:0]
		for _, slot := range keys {
			buf = append(buf, uint32(t.handle(ci, slot)))
		}
		rb.AddMany(buf)
	}
	return rb
}

// Stats returns a snapshot of the table's occupancy and counters.
func (t *Table[T]) Stats() Stats {
	s := Stats{
		Len:             t.count,
		Cap:             t.Cap(),
		ChunkSize:       t.chunkSize,
		MaxChunks:       t.maxChunks,
		ActiveChunks:    t.chunks.Len(),
		ChunksAllocated: t.chunksAllocated,
		ChunksReleased:  t.chunksReleased,
		Emplaces:        t.emplaces,
		Removes:         t.removes,
	}
	if !t.closed {
		s.NonFullChunks = t.nonFull.Len()
		s.MemoryBytes = s.ActiveChunks*t.chunkBytes + t.chunks.SizeBytes() + t.nonFull.SizeBytes()
	}
	return s
}
