package gridsearch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/gridsearch/dataset"
)

func perfAt(x, y float64, m Metrics) *Performance {
	return &Performance{Point: GridPoint{X: x, Y: y}, Metrics: m}
}

func TestBestFollowsCriterionDirection(t *testing.T) {
	perfs := []*Performance{
		perfAt(0, 0, Metrics{RMSE: 3, CorrelationCoefficient: 0.2}),
		perfAt(1, 0, Metrics{RMSE: 1, CorrelationCoefficient: 0.1}),
		perfAt(2, 0, Metrics{RMSE: 2, CorrelationCoefficient: 0.9}),
	}

	center := GridPoint{X: 1, Y: 0}

	assert.True(t, Best(perfs, RMSE, center).Point.Equal(GridPoint{X: 1, Y: 0}), "RMSE is minimized")
	assert.True(t, Best(perfs, CC, center).Point.Equal(GridPoint{X: 2, Y: 0}), "CC is maximized")
	assert.Nil(t, Best(nil, RMSE, center))
}

func TestBestRanksNaNWorst(t *testing.T) {
	perfs := []*Performance{
		perfAt(1, 1, Metrics{RMSE: math.NaN()}),
		perfAt(0, 0, Metrics{RMSE: 1e9}),
		perfAt(2, 2, Metrics{RMSE: math.NaN()}),
	}

	assert.True(t, Best(perfs, RMSE, GridPoint{X: 1, Y: 1}).Point.Equal(GridPoint{X: 0, Y: 0}))

	allNaN := []*Performance{
		perfAt(0, 0, Metrics{RMSE: math.NaN()}),
		perfAt(1, 1, Metrics{RMSE: math.NaN()}),
		perfAt(2, 2, Metrics{RMSE: math.NaN()}),
	}

	assert.True(t, Best(allNaN, RMSE, GridPoint{X: 1, Y: 1}).Point.Equal(GridPoint{X: 1, Y: 1}),
		"with every score NaN the tie-break applies")
}

func TestBestTieBreaks(t *testing.T) {
	center := GridPoint{X: 1, Y: 1}
	same := Metrics{RMSE: 0.5}

	tests := []struct {
		name   string
		points []GridPoint
		want   GridPoint
	}{
		{
			name:   "closest to the centre",
			points: []GridPoint{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 1, Y: 1}, {X: 2, Y: 0}},
			want:   GridPoint{X: 1, Y: 1},
		},
		{
			name:   "then lowest X",
			points: []GridPoint{{X: 2, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 1}, {X: 1, Y: 0}},
			want:   GridPoint{X: 0, Y: 1},
		},
		{
			name:   "then lowest Y",
			points: []GridPoint{{X: 1, Y: 2}, {X: 1, Y: 0}},
			want:   GridPoint{X: 1, Y: 0},
		},
	}

	rng := rand.New(rand.NewSource(7))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perfs := make([]*Performance, len(tt.points))
			for i, p := range tt.points {
				perfs[i] = perfAt(p.X, p.Y, same)
			}

			// The winner does not depend on the input order.
			for i := 0; i < 10; i++ {
				rng.Shuffle(len(perfs), func(a, b int) { perfs[a], perfs[b] = perfs[b], perfs[a] })

				got := Best(perfs, RMSE, center)
				if diff := cmp.Diff(tt.want, got.Point, pointCmp); diff != "" {
					t.Errorf("best mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestBestDoesNotReorderInput(t *testing.T) {
	perfs := []*Performance{
		perfAt(0, 0, Metrics{RMSE: 3}),
		perfAt(1, 0, Metrics{RMSE: 1}),
	}

	Best(perfs, RMSE, GridPoint{})

	assert.Equal(t, 3.0, perfs[0].Metrics.RMSE)
}

func TestIsUniform(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name   string
		scores []float64
		want   bool
	}{
		{name: "equal", scores: []float64{2, 2, 2}, want: true},
		{name: "one differs", scores: []float64{2, 2, 2.0000001}, want: false},
		{name: "all NaN", scores: []float64{nan, nan}, want: true},
		{name: "NaN and number", scores: []float64{nan, 1}, want: false},
		{name: "number and NaN", scores: []float64{1, nan}, want: false},
		{name: "single", scores: []float64{4}, want: true},
		{name: "empty", scores: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perfs := make([]*Performance, len(tt.scores))
			for i, s := range tt.scores {
				perfs[i] = perfAt(float64(i), 0, Metrics{MAE: s})
			}

			assert.Equal(t, tt.want, IsUniform(perfs, MAE))
		})
	}
}

func TestParseCriterion(t *testing.T) {
	for c, name := range criterionNames {
		got, err := ParseCriterion(name)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Equal(t, name, c.String())
	}

	got, err := ParseCriterion("wauc")
	require.NoError(t, err)
	assert.Equal(t, WeightedAUC, got)

	_, err = ParseCriterion("bogus")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, "Criterion(42)", Criterion(42).String())
	assert.True(t, math.IsNaN((&Performance{}).Score(Criterion(42))))
}

func TestCriterionSupportsClass(t *testing.T) {
	assert.True(t, CC.SupportsClass(dataset.Numeric))
	assert.False(t, CC.SupportsClass(dataset.Nominal))
	assert.False(t, Combined.SupportsClass(dataset.Nominal))
	assert.True(t, Accuracy.SupportsClass(dataset.Nominal))
	assert.False(t, Kappa.SupportsClass(dataset.Numeric))
	assert.False(t, WeightedAUC.SupportsClass(dataset.Numeric))
	assert.True(t, RMSE.SupportsClass(dataset.Numeric))
	assert.True(t, RMSE.SupportsClass(dataset.Nominal))

	assert.True(t, Kappa.LargerIsBetter())
	assert.False(t, RAE.LargerIsBetter())
}
