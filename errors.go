package sptable

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sptable/internal/chunk"
	"github.com/hupe1980/sptable/internal/scalar"
	"github.com/hupe1980/sptable/internal/sparse"
	"github.com/hupe1980/sptable/resource"
)

var (
	// ErrFull is returned when every chunk is full and no new chunk may be
	// allocated.
	ErrFull = errors.New("sptable: table is full")
	// ErrNotFound is returned for a handle that does not denote a live value.
	ErrNotFound = errors.New("sptable: handle not found")
	// ErrMemoryLimitExceeded is returned when allocating a chunk would exceed
	// the configured memory budget.
	ErrMemoryLimitExceeded = errors.New("sptable: memory limit exceeded")
	// ErrClosed is returned when using a table after Close.
	ErrClosed = errors.New("sptable: table is closed")
)

// ErrInvalidConfig indicates an invalid construction parameter.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Field string
	Value int
	cause error
}

func (e *ErrInvalidConfig) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("sptable: invalid %s: %d: %v", e.Field, e.Value, e.cause)
	}
	return fmt.Sprintf("sptable: invalid %s: %d", e.Field, e.Value)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, chunk.ErrNotFound), errors.Is(err, sparse.ErrAbsent), errors.Is(err, sparse.ErrOutOfRange):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, chunk.ErrFull):
		return fmt.Errorf("%w: %w", ErrFull, err)
	case errors.Is(err, chunk.ErrReleased):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrMemoryLimitExceeded, err)
	case errors.Is(err, scalar.ErrInvalidSize):
		return &ErrInvalidConfig{Field: "size", cause: err}
	}

	return err
}
