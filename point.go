package gridsearch

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Tolerance is the absolute tolerance under which two coordinates are
// considered equal. It is used for point equality, grid validation and cache
// lookups.
const Tolerance = 1e-6

// GridPoint is a position in grid coordinate space. Coordinates are compared
// with Tolerance, never exactly.
type GridPoint struct {
	X float64
	Y float64
}

// Equal reports whether both coordinates are within Tolerance of other's.
func (p GridPoint) Equal(other GridPoint) bool {
	return approxEqual(p.X, other.X) && approxEqual(p.Y, other.Y)
}

// String implements fmt.Stringer.
func (p GridPoint) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// GridIndex addresses a grid cell: X is the column, Y is the row.
type GridIndex struct {
	X int
	Y int
}

// String implements fmt.Stringer.
func (i GridIndex) String() string {
	return fmt.Sprintf("[%d, %d]", i.X, i.Y)
}

func approxEqual[T constraints.Float](a, b T) bool {
	return math.Abs(float64(a-b)) <= Tolerance
}
