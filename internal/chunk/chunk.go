package chunk

import (
	"errors"
	"fmt"
	"iter"
	"unsafe"

	"github.com/hupe1980/sptable/internal/assert"
	"github.com/hupe1980/sptable/internal/scalar"
	"github.com/hupe1980/sptable/internal/sparse"
)

var (
	// ErrFull is returned when emplacing into a chunk with no free slot.
	ErrFull = errors.New("chunk: full")
	// ErrNotFound is returned for a key that is not live.
	ErrNotFound = errors.New("chunk: key not found")
	// ErrNotEmpty is returned when releasing a chunk that still holds values.
	ErrNotEmpty = errors.New("chunk: release of non-empty chunk")
	// ErrReleased is returned when using a chunk after Release.
	ErrReleased = errors.New("chunk: released")
)

// Chunk is a fixed-capacity arena of T addressed by stable local keys.
// It is not safe for concurrent use.
type Chunk[T any] struct {
	data  []T
	index *sparse.IndexSet
	size  int
}

// New creates an empty chunk with room for size values. backing selects
// where the key index lives; values always live on the Go heap.
func New[T any](size int, backing scalar.Backing) (*Chunk[T], error) {
	index, err := sparse.New(size, backing)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	return &Chunk[T]{
		data:  make([]T, size),
		index: index,
		size:  size,
	}, nil
}

// Len returns the number of live values.
func (c *Chunk[T]) Len() int {
	if c.index == nil {
		return 0
	}
	return c.index.Len()
}

// Cap returns the fixed capacity.
func (c *Chunk[T]) Cap() int {
	return c.size
}

// Full reports whether no slot is free.
func (c *Chunk[T]) Full() bool {
	return c.Len() == c.size
}

// Released reports whether Release has been called.
func (c *Chunk[T]) Released() bool {
	return c.index == nil
}

// Contains reports whether key is live.
func (c *Chunk[T]) Contains(key int) bool {
	return c.index != nil && c.index.Contains(key)
}

// Emplace stores v and returns its local key.
func (c *Chunk[T]) Emplace(v T) (int, error) {
	if err := c.checkEmplace(); err != nil {
		return 0, err
	}
	return c.EmplaceUnchecked(v), nil
}

// EmplaceFunc claims a zeroed slot, lets fn initialize it in place and
// returns its local key.
func (c *Chunk[T]) EmplaceFunc(fn func(*T)) (int, error) {
	if err := c.checkEmplace(); err != nil {
		return 0, err
	}
	return c.EmplaceFuncUnchecked(fn), nil
}

func (c *Chunk[T]) checkEmplace() error {
	if c.index == nil {
		return ErrReleased
	}
	if c.index.Full() {
		return ErrFull
	}
	return nil
}

// EmplaceUnchecked is Emplace without the capacity check.
func (c *Chunk[T]) EmplaceUnchecked(v T) int {
	key, slot := c.claim()
	c.data[slot] = v
	return key
}

// EmplaceFuncUnchecked is EmplaceFunc without the capacity check. If fn
// panics, the slot is given back before the panic propagates.
func (c *Chunk[T]) EmplaceFuncUnchecked(fn func(*T)) int {
	key, slot := c.claim()
	done := false
	defer func() {
		if !done {
			c.index.Remove(key)
			var zero T
			c.data[slot] = zero
		}
	}()
	fn(&c.data[slot])
	done = true
	return key
}

func (c *Chunk[T]) claim() (key, slot int) {
	if assert.Enabled {
		assert.That(c.index != nil && !c.index.Full(), "chunk: emplace into a full or released chunk")
	}
	key = c.index.Next()
	c.index.Insert(key)
	return key, c.index.Len() - 1
}

// Remove deletes the value with the given key. The last live value moves
// into the vacated slot, so dense order is not preserved.
func (c *Chunk[T]) Remove(key int) error {
	if !c.Contains(key) {
		return fmt.Errorf("%w: %d", ErrNotFound, key)
	}
	c.RemoveUnchecked(key)
	return nil
}

// RemoveUnchecked is Remove without the membership check.
func (c *Chunk[T]) RemoveUnchecked(key int) {
	if assert.Enabled {
		assert.Thatf(c.Contains(key), "chunk: remove of absent key %d", key)
	}
	slot := c.index.Position(key)
	last := c.index.Len() - 1
	c.index.Remove(key)

	if slot != last {
		c.data[slot] = c.data[last]
	}
	var zero T
	c.data[last] = zero
}

// At returns a pointer to the value with the given key. The pointer is valid
// until the next Emplace or Remove on this chunk.
func (c *Chunk[T]) At(key int) (*T, error) {
	if !c.Contains(key) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, key)
	}
	return c.AtUnchecked(key), nil
}

// AtUnchecked is At without the membership check.
func (c *Chunk[T]) AtUnchecked(key int) *T {
	if assert.Enabled {
		assert.Thatf(c.Contains(key), "chunk: lookup of absent key %d", key)
	}
	return &c.data[c.index.Position(key)]
}

// AppendKeys appends the live keys in dense order to dst.
func (c *Chunk[T]) AppendKeys(dst []int) []int {
	if c.index == nil {
		return dst
	}
	return c.index.AppendKeys(dst)
}

// Values returns the live values in dense order. The slice aliases the
// chunk's storage and is valid until the next mutation.
func (c *Chunk[T]) Values() []T {
	return c.data[:c.Len()]
}

// All yields every live value with its key, in dense order.
func (c *Chunk[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		n := c.Len()
		for i := 0; i < n; i++ {
			if !yield(c.index.At(i), &c.data[i]) {
				return
			}
		}
	}
}

// Backward yields every live value with its key, in reverse dense order.
func (c *Chunk[T]) Backward() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := c.Len() - 1; i >= 0; i-- {
			if !yield(c.index.At(i), &c.data[i]) {
				return
			}
		}
	}
}

// Clear zeroes every live value and resets the key index.
func (c *Chunk[T]) Clear() {
	if c.index == nil {
		return
	}
	clear(c.data[:c.index.Len()])
	c.index.Reset()
}

// Release drops the chunk's storage. The chunk must be empty.
// Release is idempotent.
func (c *Chunk[T]) Release() error {
	if c.index == nil {
		return nil
	}
	if c.index.Len() > 0 {
		return fmt.Errorf("%w: %d live values", ErrNotEmpty, c.index.Len())
	}
	err := c.index.Close()
	c.index = nil
	c.data = nil
	return err
}

// MoveFrom clears c, takes over src's storage and contents, and leaves src
// released.
func (c *Chunk[T]) MoveFrom(src *Chunk[T]) error {
	if c == src {
		return nil
	}
	c.Clear()
	if err := c.Release(); err != nil {
		return err
	}

	c.data, c.index, c.size = src.data, src.index, src.size
	src.data, src.index = nil, nil
	return nil
}

// SizeBytes returns the memory footprint of the chunk's storage.
func (c *Chunk[T]) SizeBytes() int {
	return FootprintBytes[T](c.size)
}

// FootprintBytes returns the memory a chunk of the given size occupies:
// the value slots plus the interleaved key index.
func FootprintBytes[T any](size int) int {
	var zero T
	return size*int(unsafe.Sizeof(zero)) + size*indexEntryBytes
}

// indexEntryBytes is the size of one sparse.IndexSet entry (two uint32).
const indexEntryBytes = 8
