package scalar

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/hupe1980/sptable/internal/mem"
	"github.com/hupe1980/sptable/internal/mmap"
)

var (
	// ErrPointerType is returned when the element type contains pointers.
	ErrPointerType = errors.New("scalar: element type must be pointer-free")
	// ErrInvalidSize is returned for a non-positive capacity.
	ErrInvalidSize = errors.New("scalar: invalid size")
)

// Backing selects where an Array's memory lives.
type Backing int

const (
	// Heap allocates aligned memory on the Go heap.
	Heap Backing = iota
	// OffHeap allocates an anonymous mapping outside the Go heap.
	OffHeap
)

func (b Backing) String() string {
	switch b {
	case Heap:
		return "heap"
	case OffHeap:
		return "off-heap"
	default:
		return fmt.Sprintf("Backing(%d)", int(b))
	}
}

// noCopy may be embedded into structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Array is a fixed-capacity buffer of pointer-free elements.
// Indexed access is unchecked beyond the Go runtime's own bounds checks.
type Array[T any] struct {
	_       noCopy
	data    []T
	mapping *mmap.Mapping
	backing Backing
}

// New allocates a zeroed Array of n elements with the given backing.
func New[T any](n int, backing Backing) (*Array[T], error) {
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	if hasPointers(reflect.TypeFor[T]()) {
		return nil, fmt.Errorf("%w: %s", ErrPointerType, reflect.TypeFor[T]())
	}

	a := &Array[T]{backing: backing}

	switch backing {
	case Heap:
		a.data = mem.AllocAlignedSlice[T](n)
	case OffHeap:
		var zero T
		size := n * int(unsafe.Sizeof(zero))
		if size == 0 {
			a.data = make([]T, n)
			break
		}
		m, err := mmap.MapAnon(size)
		if err != nil {
			return nil, fmt.Errorf("scalar: failed to map %d bytes: %w", size, err)
		}
		// Sparse lookups jump around; readahead only wastes page cache.
		_ = m.Advise(mmap.AccessRandom)
		a.mapping = m
		a.data = mem.BytesAs[T](m.Bytes(), n)
	default:
		return nil, fmt.Errorf("scalar: unknown backing %v", backing)
	}

	return a, nil
}

// At returns a pointer to element i. i must be in [0, Len()).
func (a *Array[T]) At(i int) *T {
	return &a.data[i]
}

// Slice returns the whole buffer. It is valid until Close.
func (a *Array[T]) Slice() []T {
	return a.data
}

// Len returns the fixed capacity.
func (a *Array[T]) Len() int {
	return len(a.data)
}

// Backing returns where the buffer lives.
func (a *Array[T]) Backing() Backing {
	return a.backing
}

// SizeBytes returns the memory footprint of the buffer.
func (a *Array[T]) SizeBytes() int {
	var zero T
	return len(a.data) * int(unsafe.Sizeof(zero))
}

// Close releases the buffer. Off-heap memory is unmapped; accessing the
// Array afterwards panics. Close is idempotent.
func (a *Array[T]) Close() error {
	a.data = nil
	if a.mapping != nil {
		m := a.mapping
		a.mapping = nil
		return m.Close()
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Slice, reflect.Map, reflect.Interface,
		reflect.Func, reflect.Chan, reflect.String:
		return true
	case reflect.Array:
		return hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
