package gridsearch

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultGrid(t *testing.T) *GridModel {
	t.Helper()

	g, err := NewGridModel(5, 20, 1, "x", -10, 5, 1, "y")
	require.NoError(t, err)

	return g
}

func TestNewGridModelRejectsInvalidBounds(t *testing.T) {
	tests := []struct {
		name              string
		minX, maxX, stepX float64
		minY, maxY, stepY float64
	}{
		{name: "min equals max", minX: 1, maxX: 1, stepX: 1, minY: 0, maxY: 1, stepY: 1},
		{name: "min above max", minX: 0, maxX: 1, stepX: 1, minY: 2, maxY: 1, stepY: 1},
		{name: "zero step", minX: 0, maxX: 1, stepX: 0, minY: 0, maxY: 1, stepY: 1},
		{name: "negative step", minX: 0, maxX: 1, stepX: 1, minY: 0, maxY: 1, stepY: -1},
		{name: "steps miss max", minX: 0, maxX: 1, stepX: 0.3, minY: 0, maxY: 1, stepY: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGridModel(tt.minX, tt.maxX, tt.stepX, "x", tt.minY, tt.maxY, tt.stepY, "y")
			assert.ErrorIs(t, err, ErrInvalidGrid)
		})
	}
}

func TestGridInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		minX := rng.Float64()*200 - 100
		stepX := 0.05 + rng.Float64()*5
		nX := 1 + rng.Intn(60)

		minY := rng.Float64()*200 - 100
		stepY := 0.05 + rng.Float64()*5
		nY := 1 + rng.Intn(60)

		g, err := NewGridModel(minX, minX+float64(nX)*stepX, stepX, "x", minY, minY+float64(nY)*stepY, stepY, "y")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, g.Width(), 1)
		assert.GreaterOrEqual(t, g.Height(), 1)
		assert.Equal(t, nX+1, g.Width())
		assert.Equal(t, nY+1, g.Height())
		assert.InDelta(t, g.MaxX(), g.MinX()+float64(g.Width()-1)*g.StepX(), Tolerance)
		assert.InDelta(t, g.MaxY(), g.MinY()+float64(g.Height()-1)*g.StepY(), Tolerance)
	}
}

func TestLocateIsInverseOfPointAt(t *testing.T) {
	grids := []*GridModel{defaultGrid(t)}

	fractional, err := NewGridModel(-1, 1, 0.1, "x", 0.001, 0.01, 0.001, "y")
	require.NoError(t, err)

	grids = append(grids, fractional)

	for _, g := range grids {
		for ix := 0; ix < g.Width(); ix++ {
			for iy := 0; iy < g.Height(); iy++ {
				p, err := g.PointAt(ix, iy)
				require.NoError(t, err)
				assert.Equal(t, GridIndex{X: ix, Y: iy}, g.Locate(p))
			}
		}
	}
}

func TestLocateClampsAndBreaksTiesLow(t *testing.T) {
	g := defaultGrid(t)

	assert.Equal(t, GridIndex{X: 0, Y: 15}, g.Locate(GridPoint{X: -100, Y: 100}))
	assert.Equal(t, GridIndex{X: 7, Y: 7}, g.Locate(GridPoint{X: 12.5, Y: -2.5}), "midway goes to the lower index")
	assert.Equal(t, GridIndex{X: 8, Y: 7}, g.Locate(GridPoint{X: 12.6, Y: -3.2}))
}

func TestBorderCorrectness(t *testing.T) {
	g := defaultGrid(t)

	for ix := 0; ix < g.Width(); ix++ {
		for iy := 0; iy < g.Height(); iy++ {
			want := ix == 0 || ix == g.Width()-1 || iy == 0 || iy == g.Height()-1
			assert.Equal(t, want, g.IsOnBorder(GridIndex{X: ix, Y: iy}), "index [%d, %d]", ix, iy)

			p, err := g.PointAt(ix, iy)
			require.NoError(t, err)
			assert.Equal(t, want, g.IsPointOnBorder(p))
		}
	}
}

func TestPointAtOutOfRange(t *testing.T) {
	g := defaultGrid(t)

	_, err := g.PointAt(g.Width(), 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = g.PointAt(0, g.Height())
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = g.PointAt(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSubgrid(t *testing.T) {
	g := defaultGrid(t)

	sub, err := g.Subgrid(6, 6, 8, 8)
	require.NoError(t, err)

	want, err := NewGridModel(11, 13, 1, "x", -4, -2, 1, "y")
	require.NoError(t, err)

	assert.True(t, want.Equal(sub), "got %s", sub)
	assert.Equal(t, 9, sub.Size())
	assert.Equal(t, "x", sub.LabelX())
	assert.True(t, sub.Center().Equal(GridPoint{X: 12, Y: -3}))

	_, err = g.Subgrid(-1, 6, 8, 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestExtend(t *testing.T) {
	g := defaultGrid(t)

	tests := []struct {
		name  string
		point GridPoint
		want  [4]float64 // minX, maxX, minY, maxY
	}{
		{name: "on the right border", point: GridPoint{X: 20, Y: -3}, want: [4]float64{5, 21, -10, 5}},
		{name: "beyond the right border", point: GridPoint{X: 25, Y: -3}, want: [4]float64{5, 26, -10, 5}},
		{name: "one step beyond the left border", point: GridPoint{X: 4, Y: 0}, want: [4]float64{3, 20, -10, 5}},
		{name: "corner", point: GridPoint{X: 5, Y: 5}, want: [4]float64{4, 20, -10, 6}},
		{name: "bottom border", point: GridPoint{X: 10, Y: -10}, want: [4]float64{5, 20, -11, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extended, err := g.Extend(tt.point)
			require.NoError(t, err)

			got := [4]float64{extended.MinX(), extended.MaxX(), extended.MinY(), extended.MaxY()}
			assert.InDeltaSlice(t, tt.want[:], got[:], Tolerance)

			assert.False(t, extended.IsPointOnBorder(tt.point), "point must be interior after extension")
			assert.Equal(t, g.StepX(), extended.StepX())
		})
	}

	_, err := g.Extend(GridPoint{X: 12, Y: -3})
	assert.ErrorIs(t, err, ErrState)
}

func TestRowAndColumnPoints(t *testing.T) {
	g, err := NewGridModel(0, 2, 1, "x", 0, 1, 0.5, "y")
	require.NoError(t, err)

	row, err := g.RowPoints(1)
	require.NoError(t, err)

	want := []GridPoint{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}, {X: 2, Y: 0.5}}

	if diff := cmp.Diff(want, slices.Collect(row), pointCmp); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	// Sequences are restartable.
	if diff := cmp.Diff(want, slices.Collect(row), pointCmp); diff != "" {
		t.Errorf("second iteration mismatch (-want +got):\n%s", diff)
	}

	col, err := g.ColumnPoints(2)
	require.NoError(t, err)

	wantCol := []GridPoint{{X: 2, Y: 0}, {X: 2, Y: 0.5}, {X: 2, Y: 1}}
	if diff := cmp.Diff(wantCol, slices.Collect(col), pointCmp); diff != "" {
		t.Errorf("column mismatch (-want +got):\n%s", diff)
	}

	var visited int

	for p := range row {
		visited++

		if p.X > 0 {
			break
		}
	}

	assert.Equal(t, 2, visited, "early break stops the sequence")

	_, err = g.RowPoints(3)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = g.ColumnPoints(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPointsAreRowMajor(t *testing.T) {
	g, err := NewGridModel(0, 1, 1, "x", 0, 1, 1, "y")
	require.NoError(t, err)

	want := []GridPoint{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}

	if diff := cmp.Diff(want, g.Points(), pointCmp); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestGridPointEqualUsesTolerance(t *testing.T) {
	p := GridPoint{X: 0.1 + 0.2, Y: 1}

	assert.True(t, p.Equal(GridPoint{X: 0.3, Y: 1}))
	assert.False(t, p.Equal(GridPoint{X: 0.3 + 2*Tolerance, Y: 1}))
	assert.Equal(t, "(0.3, 1)", GridPoint{X: 0.3, Y: 1}.String())
}
