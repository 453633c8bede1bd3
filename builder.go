package sptable

import (
	"log/slog"

	"github.com/hupe1980/sptable/resource"
)

const (
	// DefaultChunkSize is the number of values per chunk used by Builder.
	DefaultChunkSize = 1024
	// DefaultMaxChunks is the chunk limit used by Builder.
	DefaultMaxChunks = 64
)

// Builder creates a new table builder with default sizing.
//
// The builder is immutable - each method returns a new builder with the updated configuration.
//
// Example:
//
//	tbl, err := sptable.Builder[Conn]().
//	    ChunkSize(256).
//	    Capacity(100_000).
//	    Name("conns").
//	    Build()
func Builder[T any]() TableBuilder[T] {
	return TableBuilder[T]{
		chunkSize: DefaultChunkSize,
		maxChunks: DefaultMaxChunks,
	}
}

// TableBuilder is an immutable fluent builder for Table.
type TableBuilder[T any] struct {
	chunkSize int
	maxChunks int
	capacity  int
	logger    *Logger
	metrics   MetricsCollector
	memory    *resource.Controller
	offHeap   bool
	name      string
}

// ChunkSize sets the number of values per chunk. A chunk is the unit of
// allocation and release.
// Default: 1024.
func (b TableBuilder[T]) ChunkSize(n int) TableBuilder[T] {
	b.chunkSize = n
	return b
}

// MaxChunks sets the chunk limit. It overrides an earlier Capacity.
// Default: 64.
func (b TableBuilder[T]) MaxChunks(n int) TableBuilder[T] {
	b.maxChunks = n
	b.capacity = 0
	return b
}

// Capacity sets the chunk limit to the fewest chunks holding n values.
// The resulting Cap() is n rounded up to a multiple of the chunk size.
func (b TableBuilder[T]) Capacity(n int) TableBuilder[T] {
	b.capacity = n
	return b
}

// Logger sets the logger for chunk lifecycle events.
func (b TableBuilder[T]) Logger(l *Logger) TableBuilder[T] {
	b.logger = l
	return b
}

// LogLevel sets a text logger with the given level.
func (b TableBuilder[T]) LogLevel(level slog.Level) TableBuilder[T] {
	b.logger = NewTextLogger(level)
	return b
}

// Metrics sets the metrics collector.
func (b TableBuilder[T]) Metrics(mc MetricsCollector) TableBuilder[T] {
	b.metrics = mc
	return b
}

// MemoryController charges chunk allocations against rc.
func (b TableBuilder[T]) MemoryController(rc *resource.Controller) TableBuilder[T] {
	b.memory = rc
	return b
}

// OffHeapIndex places key indexes in anonymous memory mappings.
func (b TableBuilder[T]) OffHeapIndex() TableBuilder[T] {
	b.offHeap = true
	return b
}

// Name labels the table in log output.
func (b TableBuilder[T]) Name(name string) TableBuilder[T] {
	b.name = name
	return b
}

// Build creates the table.
func (b TableBuilder[T]) Build() (*Table[T], error) {
	maxChunks := b.maxChunks
	if b.capacity != 0 {
		if b.capacity < 0 {
			return nil, &ErrInvalidConfig{Field: "capacity", Value: b.capacity}
		}
		if b.chunkSize <= 0 {
			return nil, &ErrInvalidConfig{Field: "chunkSize", Value: b.chunkSize}
		}
		maxChunks = (b.capacity + b.chunkSize - 1) / b.chunkSize
	}

	opts := []Option{WithName(b.name)}
	if b.logger != nil {
		opts = append(opts, WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, WithMetricsCollector(b.metrics))
	}
	if b.memory != nil {
		opts = append(opts, WithMemoryController(b.memory))
	}
	if b.offHeap {
		opts = append(opts, WithOffHeapIndex())
	}

	return New[T](maxChunks, b.chunkSize, opts...)
}
