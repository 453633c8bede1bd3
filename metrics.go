package sptable

import (
	"sync/atomic"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Collectors are called on the insert/remove hot path and must be cheap.
// One collector may be shared by several tables, possibly used from
// different goroutines.
type MetricsCollector interface {
	// RecordEmplace is called after each insert. err is nil if successful.
	RecordEmplace(err error)

	// RecordRemove is called after each remove. err is nil if successful.
	RecordRemove(err error)

	// RecordChunkAllocated is called when a table allocates a chunk.
	RecordChunkAllocated(bytes int)

	// RecordChunkReleased is called when a table releases an emptied chunk.
	RecordChunkReleased(bytes int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEmplace(error)      {}
func (NoopMetricsCollector) RecordRemove(error)       {}
func (NoopMetricsCollector) RecordChunkAllocated(int) {}
func (NoopMetricsCollector) RecordChunkReleased(int)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EmplaceCount    atomic.Int64
	EmplaceErrors   atomic.Int64
	RemoveCount     atomic.Int64
	RemoveErrors    atomic.Int64
	ChunksAllocated atomic.Int64
	ChunksReleased  atomic.Int64
	ChunkBytes      atomic.Int64
}

// RecordEmplace implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEmplace(err error) {
	b.EmplaceCount.Add(1)
	if err != nil {
		b.EmplaceErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordChunkAllocated implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkAllocated(bytes int) {
	b.ChunksAllocated.Add(1)
	b.ChunkBytes.Add(int64(bytes))
}

// RecordChunkReleased implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkReleased(bytes int) {
	b.ChunksReleased.Add(1)
	b.ChunkBytes.Add(-int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	allocated := b.ChunksAllocated.Load()
	released := b.ChunksReleased.Load()
	return BasicMetricsStats{
		EmplaceCount:    b.EmplaceCount.Load(),
		EmplaceErrors:   b.EmplaceErrors.Load(),
		RemoveCount:     b.RemoveCount.Load(),
		RemoveErrors:    b.RemoveErrors.Load(),
		ChunksAllocated: allocated,
		ChunksReleased:  released,
		ChunksLive:      allocated - released,
		ChunkBytes:      b.ChunkBytes.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector counters.
type BasicMetricsStats struct {
	EmplaceCount    int64
	EmplaceErrors   int64
	RemoveCount     int64
	RemoveErrors    int64
	ChunksAllocated int64
	ChunksReleased  int64
	ChunksLive      int64
	ChunkBytes      int64
}
