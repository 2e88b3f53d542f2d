package gridsearch

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

//////
// Const, vars, types.
//////

// GridModel is a 2-D lattice over the (X, Y) grid coordinate space.
//
// Fields:
//   - minX, maxX, stepX: bounds (inclusive) and spacing along X
//   - minY, maxY, stepY: bounds (inclusive) and spacing along Y
//   - labelX, labelY: axis names, used in logs and results
//   - width, height: number of lattice nodes per axis
//
// Invariants:
//   - min < max and step > 0 on both axes
//   - min + (size-1)*step equals max within Tolerance
//
// A GridModel never changes after construction. Narrowing (Subgrid) and
// widening (Extend) return new grids.
type GridModel struct {
	minX, maxX, stepX float64
	minY, maxY, stepY float64
	labelX, labelY    string
	width, height     int
}

//////
// Factory.
//////

// NewGridModel builds a grid and validates its lattice invariants.
//
// Parameters:
//   - minX, maxX, stepX, labelX: X axis bounds, spacing and name
//   - minY, maxY, stepY, labelY: Y axis bounds, spacing and name
//
// Returns:
//   - *GridModel: the grid
//   - error: ErrInvalidGrid if min >= max, step <= 0, or the steps do not
//     land on max
//
// Usage example:
//
//	grid, err := NewGridModel(5, 20, 1, "numComponents", -10, 5, 1, "ridge")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(grid.Width(), grid.Height()) // 16 16
func NewGridModel(
	minX, maxX, stepX float64, labelX string,
	minY, maxY, stepY float64, labelY string,
) (*GridModel, error) {
	width, err := axisSize(minX, maxX, stepX)
	if err != nil {
		return nil, fmt.Errorf("%w: X axis %q: %w", ErrInvalidGrid, labelX, err)
	}

	height, err := axisSize(minY, maxY, stepY)
	if err != nil {
		return nil, fmt.Errorf("%w: Y axis %q: %w", ErrInvalidGrid, labelY, err)
	}

	return &GridModel{
		minX: minX, maxX: maxX, stepX: stepX, labelX: labelX,
		minY: minY, maxY: maxY, stepY: stepY, labelY: labelY,
		width: width, height: height,
	}, nil
}

func axisSize(lo, hi, step float64) (int, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsNaN(step) {
		return 0, errors.New("NaN bound")
	}

	if lo >= hi {
		return 0, fmt.Errorf("min %g must be less than max %g", lo, hi)
	}

	if step <= 0 {
		return 0, fmt.Errorf("step %g must be positive", step)
	}

	size := int(math.Round((hi-lo)/step)) + 1

	if !approxEqual(lo+float64(size-1)*step, hi) {
		return 0, fmt.Errorf("min %g + %d steps of %g does not reach max %g", lo, size-1, step, hi)
	}

	return size, nil
}

//////
// Methods.
//////

// Width returns the number of columns (X nodes).
func (g *GridModel) Width() int { return g.width }

// Height returns the number of rows (Y nodes).
func (g *GridModel) Height() int { return g.height }

// MinX returns the lower X bound.
func (g *GridModel) MinX() float64 { return g.minX }

// MaxX returns the upper X bound.
func (g *GridModel) MaxX() float64 { return g.maxX }

// StepX returns the X spacing.
func (g *GridModel) StepX() float64 { return g.stepX }

// MinY returns the lower Y bound.
func (g *GridModel) MinY() float64 { return g.minY }

// MaxY returns the upper Y bound.
func (g *GridModel) MaxY() float64 { return g.maxY }

// StepY returns the Y spacing.
func (g *GridModel) StepY() float64 { return g.stepY }

// LabelX returns the X axis name.
func (g *GridModel) LabelX() string { return g.labelX }

// LabelY returns the Y axis name.
func (g *GridModel) LabelY() string { return g.labelY }

// Size returns the number of lattice nodes.
func (g *GridModel) Size() int { return g.width * g.height }

// Center returns the point halfway between the bounds. It is not necessarily
// a lattice node.
func (g *GridModel) Center() GridPoint {
	return GridPoint{X: (g.minX + g.maxX) / 2, Y: (g.minY + g.maxY) / 2}
}

// PointAt returns the lattice node at column ix, row iy.
func (g *GridModel) PointAt(ix, iy int) (GridPoint, error) {
	if ix < 0 || ix >= g.width || iy < 0 || iy >= g.height {
		return GridPoint{}, fmt.Errorf("%w: [%d, %d] on a %dx%d grid", ErrOutOfRange, ix, iy, g.width, g.height)
	}

	return g.pointAt(ix, iy), nil
}

func (g *GridModel) pointAt(ix, iy int) GridPoint {
	return GridPoint{
		X: g.minX + float64(ix)*g.stepX,
		Y: g.minY + float64(iy)*g.stepY,
	}
}

// Locate returns the index of the lattice node nearest p, searched on each
// axis independently. On a tie the lowest index wins. Points outside the
// grid map to the nearest border node, so the result is always in range.
func (g *GridModel) Locate(p GridPoint) GridIndex {
	return GridIndex{
		X: nearest(g.width, p.X, func(i int) float64 { return g.minX + float64(i)*g.stepX }),
		Y: nearest(g.height, p.Y, func(i int) float64 { return g.minY + float64(i)*g.stepY }),
	}
}

func nearest(size int, v float64, at func(int) float64) int {
	best, bestDist := 0, math.Inf(1)

	for i := 0; i < size; i++ {
		if d := math.Abs(at(i) - v); d < bestDist {
			best, bestDist = i, d
		}
	}

	return best
}

// IsOnBorder reports whether idx lies on the first or last row or column.
func (g *GridModel) IsOnBorder(idx GridIndex) bool {
	return idx.X == 0 || idx.X == g.width-1 || idx.Y == 0 || idx.Y == g.height-1
}

// IsPointOnBorder reports whether the node nearest p lies on the border.
func (g *GridModel) IsPointOnBorder(p GridPoint) bool {
	return g.IsOnBorder(g.Locate(p))
}

// Subgrid returns the grid spanned by the given rows and columns, keeping
// the step sizes and labels. The 3x3 neighbourhood of an interior node idx is
// Subgrid(idx.Y-1, idx.X-1, idx.Y+1, idx.X+1).
func (g *GridModel) Subgrid(top, left, bottom, right int) (*GridModel, error) {
	topLeft, err := g.PointAt(left, top)
	if err != nil {
		return nil, err
	}

	bottomRight, err := g.PointAt(right, bottom)
	if err != nil {
		return nil, err
	}

	return NewGridModel(
		math.Min(topLeft.X, bottomRight.X), math.Max(topLeft.X, bottomRight.X), g.stepX, g.labelX,
		math.Min(topLeft.Y, bottomRight.Y), math.Max(topLeft.Y, bottomRight.Y), g.stepY, g.labelY,
	)
}

// Extend returns a grid whose bounds are pushed outward by whole steps until
// p is strictly inside it. Axes on which p is already interior are kept.
//
// Returns:
//   - *GridModel: the extended grid
//   - error: ErrState if p is interior on both axes, as the extension would
//     make no progress
//
// Usage example:
//
//	if grid.IsPointOnBorder(best) {
//	    grid, err = grid.Extend(best)
//	}
func (g *GridModel) Extend(p GridPoint) (*GridModel, error) {
	minX, maxX := extendAxis(g.minX, g.maxX, g.stepX, p.X)
	minY, maxY := extendAxis(g.minY, g.maxY, g.stepY, p.Y)

	extended, err := NewGridModel(minX, maxX, g.stepX, g.labelX, minY, maxY, g.stepY, g.labelY)
	if err != nil {
		return nil, err
	}

	if extended.Equal(g) {
		return nil, fmt.Errorf("%w: extending grid %s with %s makes no progress", ErrState, g, p)
	}

	return extended, nil
}

func extendAxis(lo, hi, step, v float64) (float64, float64) {
	if v <= lo+Tolerance {
		k := math.Floor((lo-v)/step+Tolerance) + 1
		lo -= k * step
	}

	if v >= hi-Tolerance {
		k := math.Floor((v-hi)/step+Tolerance) + 1
		hi += k * step
	}

	return lo, hi
}

// RowPoints returns the nodes of row iy in ascending X order. The sequence
// can be iterated any number of times.
func (g *GridModel) RowPoints(iy int) (iter.Seq[GridPoint], error) {
	if iy < 0 || iy >= g.height {
		return nil, fmt.Errorf("%w: row %d on a grid of height %d", ErrOutOfRange, iy, g.height)
	}

	return func(yield func(GridPoint) bool) {
		for ix := 0; ix < g.width; ix++ {
			if !yield(g.pointAt(ix, iy)) {
				return
			}
		}
	}, nil
}

// ColumnPoints returns the nodes of column ix in ascending Y order. The
// sequence can be iterated any number of times.
func (g *GridModel) ColumnPoints(ix int) (iter.Seq[GridPoint], error) {
	if ix < 0 || ix >= g.width {
		return nil, fmt.Errorf("%w: column %d on a grid of width %d", ErrOutOfRange, ix, g.width)
	}

	return func(yield func(GridPoint) bool) {
		for iy := 0; iy < g.height; iy++ {
			if !yield(g.pointAt(ix, iy)) {
				return
			}
		}
	}, nil
}

// Points returns every node, row by row.
func (g *GridModel) Points() []GridPoint {
	points := make([]GridPoint, 0, g.Size())

	for iy := 0; iy < g.height; iy++ {
		for ix := 0; ix < g.width; ix++ {
			points = append(points, g.pointAt(ix, iy))
		}
	}

	return points
}

// Equal reports whether other spans the same lattice within Tolerance.
// Labels are ignored.
func (g *GridModel) Equal(other *GridModel) bool {
	if other == nil {
		return false
	}

	return g.width == other.width && g.height == other.height &&
		approxEqual(g.minX, other.minX) && approxEqual(g.maxX, other.maxX) && approxEqual(g.stepX, other.stepX) &&
		approxEqual(g.minY, other.minY) && approxEqual(g.maxY, other.maxY) && approxEqual(g.stepY, other.stepY)
}

// String implements fmt.Stringer.
func (g *GridModel) String() string {
	return fmt.Sprintf("%s=[%g..%g/%g] x %s=[%g..%g/%g]",
		g.labelX, g.minX, g.maxX, g.stepX, g.labelY, g.minY, g.maxY, g.stepY)
}
