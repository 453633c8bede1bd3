package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint32 (negative)", ErrOverflow, v)
	}
	// On 64-bit systems, int can exceed uint32 max; on 32-bit, this is always false
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint32 (too large)", ErrOverflow, v)
	}
	return uint32(v), nil
}

// MulToUint32 returns a*b as a uint32 if both factors are non-negative and
// the product fits. The product is never computed in a type that could wrap.
func MulToUint32(a, b int) (uint32, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: %d*%d cannot be converted to uint32 (negative)", ErrOverflow, a, b)
	}
	if a != 0 && uint64(b) > math.MaxUint32/uint64(a) {
		return 0, fmt.Errorf("%w: %d*%d cannot be converted to uint32 (too large)", ErrOverflow, a, b)
	}
	return uint32(uint64(a) * uint64(b)), nil
}
