package memutils

import (
	"math"

	cerrors "github.com/cockroachdb/errors"
)

const (
	// MaxAlign is the strictest alignment any allocator in this module will be asked to honor.
	// Allocation sizes are rounded up to a multiple of it so that consecutive allocations from
	// the same buffer stay aligned for every basic type.
	MaxAlign uint = 16

	// MaxAlignedSize is the largest request size that can be rounded up to MaxAlign without
	// overflowing. Allocators treat anything larger as an unsatisfiable request.
	MaxAlignedSize int = math.MaxInt - int(MaxAlign) + 1
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// IsAligned returns whether addr is a multiple of alignment. alignment must be a power of two.
func IsAligned(addr uintptr, alignment uint) bool {
	return addr&uintptr(alignment-1) == 0
}
