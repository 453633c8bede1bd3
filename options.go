package sptable

import (
	"log/slog"

	"github.com/hupe1980/sptable/internal/scalar"
	"github.com/hupe1980/sptable/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	memory           *resource.Controller
	backing          scalar.Backing
	name             string
}

// Option configures a Table at construction.
type Option func(*options)

// WithLogger configures structured logging for chunk lifecycle events.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := sptable.NewJSONLogger(slog.LevelDebug)
//	t, _ := sptable.New[Conn](64, 1024, sptable.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &sptable.BasicMetricsCollector{}
//	t, _ := sptable.New[Conn](64, 1024, sptable.WithMetricsCollector(metrics))
//	// ... use t ...
//	stats := metrics.GetStats()
//	fmt.Printf("Emplaces: %d, chunks live: %d\n", stats.EmplaceCount, stats.ChunksLive)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMemoryController charges every chunk allocation against a shared
// memory budget. A chunk's reservation is released when the chunk is.
//
// Example:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	t, _ := sptable.New[Conn](64, 1024, sptable.WithMemoryController(rc))
func WithMemoryController(rc *resource.Controller) Option {
	return func(o *options) {
		o.memory = rc
	}
}

// WithOffHeapIndex places every key index (per-chunk and table-level) in
// anonymous memory mappings outside the Go heap. Values stay on the heap.
// Tables created with this option must be closed to unmap the indexes.
func WithOffHeapIndex() Option {
	return func(o *options) {
		o.backing = scalar.OffHeap
	}
}

// WithName labels the table in log output.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		backing:          scalar.Heap,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.name != "" {
		o.logger = o.logger.WithTable(o.name)
	}
	return o
}
