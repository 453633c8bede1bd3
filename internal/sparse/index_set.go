package sparse

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hupe1980/sptable/internal/assert"
	"github.com/hupe1980/sptable/internal/conv"
	"github.com/hupe1980/sptable/internal/scalar"
)

var (
	// ErrPresent is returned when inserting a key that is already present.
	ErrPresent = errors.New("sparse: key already present")
	// ErrAbsent is returned when removing a key that is not present.
	ErrAbsent = errors.New("sparse: key not present")
	// ErrOutOfRange is returned for keys outside [0, Size).
	ErrOutOfRange = errors.New("sparse: key out of range")
)

// entry interleaves both views so that a key's sparse slot and the dense slot
// at the same index share a cache line.
type entry struct {
	sparse uint32
	dense  uint32
}

// IndexSet is a fixed-size sparse set over the keys [0, Size).
// It is not safe for concurrent use.
type IndexSet struct {
	items *scalar.Array[entry]
	count int
}

// New creates an empty IndexSet over [0, size).
func New(size int, backing scalar.Backing) (*IndexSet, error) {
	if _, err := conv.IntToUint32(size); err != nil {
		return nil, fmt.Errorf("sparse: invalid size: %w", err)
	}
	items, err := scalar.New[entry](size, backing)
	if err != nil {
		return nil, err
	}
	s := &IndexSet{items: items}
	s.Reset()
	return s, nil
}

// Size returns the size of the key space.
func (s *IndexSet) Size() int {
	return s.items.Len()
}

// Len returns the number of present keys.
func (s *IndexSet) Len() int {
	return s.count
}

// Full reports whether every key is present.
func (s *IndexSet) Full() bool {
	return s.count == s.items.Len()
}

// Contains reports whether key is present. Out-of-range keys are absent.
func (s *IndexSet) Contains(key int) bool {
	if key < 0 || key >= s.items.Len() {
		return false
	}
	items := s.items.Slice()
	pos := items[key].sparse
	return int(pos) < s.count && items[pos].dense == uint32(key)
}

// Insert adds key. key must be in range and absent.
func (s *IndexSet) Insert(key int) {
	if assert.Enabled {
		assert.Thatf(key >= 0 && key < s.items.Len() && !s.Contains(key),
			"sparse: insert of present or out-of-range key %d", key)
	}

	items := s.items.Slice()
	pos := items[key].sparse
	n := uint32(s.count) //nolint:gosec // count < Size <= MaxUint32
	displaced := items[n].dense

	items[n].dense = uint32(key)
	items[key].sparse = n
	items[pos].dense = displaced
	items[displaced].sparse = pos

	s.count++
}

// TryInsert is Insert with the preconditions checked.
func (s *IndexSet) TryInsert(key int) error {
	if key < 0 || key >= s.items.Len() {
		return fmt.Errorf("%w: %d", ErrOutOfRange, key)
	}
	if s.Contains(key) {
		return fmt.Errorf("%w: %d", ErrPresent, key)
	}
	s.Insert(key)
	return nil
}

// Remove deletes key. The key at the last dense position moves into key's
// position. key must be present.
func (s *IndexSet) Remove(key int) {
	if assert.Enabled {
		assert.Thatf(s.Contains(key), "sparse: remove of absent key %d", key)
	}

	items := s.items.Slice()
	pos := items[key].sparse
	last := uint32(s.count - 1) //nolint:gosec // count > 0 when key is present
	moved := items[last].dense

	items[pos].dense = moved
	items[moved].sparse = pos
	items[last].dense = uint32(key)
	items[key].sparse = last

	s.count--
}

// TryRemove is Remove with the preconditions checked.
func (s *IndexSet) TryRemove(key int) error {
	if key < 0 || key >= s.items.Len() {
		return fmt.Errorf("%w: %d", ErrOutOfRange, key)
	}
	if !s.Contains(key) {
		return fmt.Errorf("%w: %d", ErrAbsent, key)
	}
	s.Remove(key)
	return nil
}

// Position returns the dense position of a present key.
func (s *IndexSet) Position(key int) int {
	if assert.Enabled {
		assert.Thatf(s.Contains(key), "sparse: position of absent key %d", key)
	}
	return int(s.items.Slice()[key].sparse)
}

// At returns the key at dense position i, for i in [0, Len()).
func (s *IndexSet) At(i int) int {
	if assert.Enabled {
		assert.Thatf(i >= 0 && i < s.count, "sparse: dense index %d out of range [0, %d)", i, s.count)
	}
	return int(s.items.Slice()[i].dense)
}

// Next returns the key the next "insert any free key" should use.
// The set must not be full.
func (s *IndexSet) Next() int {
	if assert.Enabled {
		assert.That(!s.Full(), "sparse: next key of a full set")
	}
	return int(s.items.Slice()[s.count].dense)
}

// All yields the present keys in dense order.
func (s *IndexSet) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		items := s.items.Slice()
		for i := 0; i < s.count; i++ {
			if !yield(int(items[i].dense)) {
				return
			}
		}
	}
}

// AppendKeys appends the present keys in dense order to dst.
func (s *IndexSet) AppendKeys(dst []int) []int {
	items := s.items.Slice()
	for i := 0; i < s.count; i++ {
		dst = append(dst, int(items[i].dense))
	}
	return dst
}

// Clear removes every key in O(1).
func (s *IndexSet) Clear() {
	s.count = 0
}

// Reset removes every key and restores the identity layout, so that Next
// hands out keys in ascending order again.
func (s *IndexSet) Reset() {
	items := s.items.Slice()
	for i := range items {
		items[i] = entry{sparse: uint32(i), dense: uint32(i)} //nolint:gosec // i < Size <= MaxUint32
	}
	s.count = 0
}

// SizeBytes returns the memory footprint of the index.
func (s *IndexSet) SizeBytes() int {
	return s.items.SizeBytes()
}

// Close releases the backing storage. The set must not be used afterwards.
func (s *IndexSet) Close() error {
	s.count = 0
	return s.items.Close()
}
