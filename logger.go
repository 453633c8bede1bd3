package sptable

import (
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWarnInterval is the minimum spacing between repeated capacity
// warnings from one Logger.
const DefaultWarnInterval = time.Second

// Logger wraps slog.Logger with sptable-specific context.
// This provides structured logging with consistent field names.
//
// Capacity warnings are throttled: a caller retrying against a full table
// would otherwise log on every attempt.
type Logger struct {
	*slog.Logger
	warnLimiter *rate.Limiter
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger:      slog.New(handler),
		warnLimiter: newWarnLimiter(DefaultWarnInterval),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

func newWarnLimiter(interval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(interval), 1)
}

// WithWarnInterval returns a copy of the logger whose capacity warnings are
// spaced at least interval apart. A non-positive interval disables throttling.
func (l *Logger) WithWarnInterval(interval time.Duration) *Logger {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if interval > 0 {
		limiter = newWarnLimiter(interval)
	}
	return &Logger{
		Logger:      l.Logger,
		warnLimiter: limiter,
	}
}

// WithTable adds a table name field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.With("table", name),
		warnLimiter: l.warnLimiter,
	}
}

// LogChunkAllocated logs the allocation of a chunk.
func (l *Logger) LogChunkAllocated(chunkIndex, bytes, activeChunks int) {
	l.Debug("chunk allocated",
		"chunk", chunkIndex,
		"bytes", bytes,
		"active_chunks", activeChunks,
	)
}

// LogChunkReleased logs the release of an emptied chunk.
func (l *Logger) LogChunkReleased(chunkIndex, bytes, activeChunks int, err error) {
	if err != nil {
		l.Error("chunk release failed",
			"chunk", chunkIndex,
			"bytes", bytes,
			"error", err,
		)
		return
	}
	l.Debug("chunk released",
		"chunk", chunkIndex,
		"bytes", bytes,
		"active_chunks", activeChunks,
	)
}

// LogExhausted logs a failed insert due to capacity or memory budget.
func (l *Logger) LogExhausted(size, capacity int, err error) {
	if l.warnLimiter != nil && !l.warnLimiter.Allow() {
		return
	}
	l.Warn("insert rejected",
		"size", size,
		"capacity", capacity,
		"error", err,
	)
}

// LogClear logs a table-wide clear.
func (l *Logger) LogClear(removed, chunksReleased int) {
	l.Info("table cleared",
		"removed", removed,
		"chunks_released", chunksReleased,
	)
}
