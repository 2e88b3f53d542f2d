package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericFixture(t *testing.T) *Dataset {
	t.Helper()

	x := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}}
	y := []float64{1.5, math.NaN(), 3.5, 4.5}

	d, err := NewNumeric([]string{"a", "b"}, "target", x, y)
	require.NoError(t, err)

	return d
}

func TestNewNumericRejectsBadShape(t *testing.T) {
	_, err := NewNumeric([]string{"a"}, "y", [][]float64{{1}, {2, 3}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShape)

	_, err = NewNumeric([]string{"a"}, "y", [][]float64{{1}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShape)

	_, err = NewNumeric(nil, "y", nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewNominalRejectsUnknownLabel(t *testing.T) {
	_, err := NewNominal([]string{"a"}, "y", []string{"no", "yes"}, [][]float64{{1}, {2}}, []float64{0, 2})
	assert.ErrorIs(t, err, ErrClassValue)
}

func TestDeleteWithMissingClass(t *testing.T) {
	d := numericFixture(t)

	clean := d.DeleteWithMissingClass()
	assert.Equal(t, 3, clean.Len())
	assert.Equal(t, []float64{1.5, 3.5, 4.5}, clean.Y)
	assert.Equal(t, 4, d.Len(), "receiver must not change")

	assert.Same(t, clean, clean.DeleteWithMissingClass())
}

func TestResample(t *testing.T) {
	x := make([][]float64, 100)
	y := make([]float64, 100)

	for i := range x {
		x[i] = []float64{float64(i)}
		y[i] = float64(i)
	}

	d, err := NewNumeric([]string{"a"}, "y", x, y)
	require.NoError(t, err)

	assert.Same(t, d, d.Resample(100, 1))

	sample := d.Resample(25, 7)
	assert.Equal(t, 25, sample.Len())

	// Original order is preserved.
	for i := 1; i < sample.Len(); i++ {
		assert.Less(t, sample.Y[i-1], sample.Y[i])
	}

	// Same seed, same sample.
	assert.Equal(t, sample.Y, d.Resample(25, 7).Y)

	assert.Equal(t, 1, d.Resample(0.1, 1).Len())
}

func TestClassStatistics(t *testing.T) {
	d := numericFixture(t)
	assert.InDelta(t, 9.5/3, d.ClassMean(), 1e-12)

	n, err := NewNominal([]string{"a"}, "y", []string{"a", "b"}, [][]float64{{1}, {2}, {3}}, []float64{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, n.ClassCounts())
	assert.Equal(t, 2, n.NumClasses())
}

func TestNumericCleaner(t *testing.T) {
	d, err := NewNumeric([]string{"a", "b"}, "y", [][]float64{{1e-9, -5}, {0.5, math.NaN()}}, []float64{1e-9, 2})
	require.NoError(t, err)

	c := DefaultNumericCleaner()
	c.MinThreshold = -1
	c.MinDefault = -1

	out := c.Clean(d)
	assert.Equal(t, 0.0, out.X[0][0])
	assert.Equal(t, -1.0, out.X[0][1])
	assert.Equal(t, 0.5, out.X[1][0])
	assert.True(t, math.IsNaN(out.X[1][1]))
	assert.Equal(t, 1e-9, out.Y[0], "class column is not cleaned")
	assert.Equal(t, 1e-9, d.X[0][0], "receiver must not change")

	c.Decimals = 0
	assert.Equal(t, 1.0, c.cleanValue(0.6))
}

func TestLoadCSV(t *testing.T) {
	input := `a,label,b
1,yes,2
3,no,?
5,,6
`

	d, err := LoadCSV(strings.NewReader(input), "label", Nominal)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, d.Attributes)
	assert.Equal(t, []string{"yes", "no"}, d.Labels)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 0.0, d.Y[0])
	assert.Equal(t, 1.0, d.Y[1])
	assert.True(t, math.IsNaN(d.Y[2]))
	assert.True(t, math.IsNaN(d.X[1][1]))

	_, err = LoadCSV(strings.NewReader("a,b\n1,2\n"), "missing", Numeric)
	assert.ErrorIs(t, err, ErrNoClass)

	_, err = LoadCSV(strings.NewReader("a,y\nx,2\n"), "y", Numeric)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadJSON(t *testing.T) {
	input := `[
		{"x1": 1.5, "x.2": 2, "target": 3.25},
		{"x1": 0.5, "x.2": null, "target": 1},
		{"x1": "7", "x.2": 1, "target": null}
	]`

	d, err := LoadJSON([]byte(input), "target", Numeric)
	require.NoError(t, err)

	assert.Equal(t, []string{"x1", "x.2"}, d.Attributes)
	assert.Equal(t, []float64{1.5, 2}, d.X[0])
	assert.True(t, math.IsNaN(d.X[1][1]))
	assert.Equal(t, 7.0, d.X[2][0])
	assert.True(t, math.IsNaN(d.Y[2]))

	nominal, err := LoadJSON([]byte(`[{"a":1,"c":"x"},{"a":2,"c":"y"},{"a":3,"c":"x"}]`), "c", Nominal)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, nominal.Labels)
	assert.Equal(t, []float64{0, 1, 0}, nominal.Y)

	_, err = LoadJSON([]byte(`{"a":1}`), "a", Numeric)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = LoadJSON([]byte(`[{"a":1}]`), "c", Numeric)
	assert.ErrorIs(t, err, ErrNoClass)
}

func TestFoldsPartitionInstances(t *testing.T) {
	x := make([][]float64, 10)
	y := make([]float64, 10)

	for i := range x {
		x[i] = []float64{float64(i)}
		y[i] = float64(i)
	}

	d, err := NewNumeric([]string{"a"}, "y", x, y)
	require.NoError(t, err)

	folds, err := d.Folds(3, 7)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	seen := map[float64]int{}

	for _, f := range folds {
		assert.Equal(t, d.Len(), f.Train.Len()+f.Test.Len())

		for _, v := range f.Test.Y {
			seen[v]++
		}
	}

	assert.Len(t, seen, 10, "every instance is tested exactly once")

	for _, count := range seen {
		assert.Equal(t, 1, count)
	}

	again, err := d.Folds(3, 7)
	require.NoError(t, err)
	assert.Equal(t, folds[1].Test.Y, again[1].Test.Y, "same seed gives the same split")

	loo, err := d.Folds(50, 1)
	require.NoError(t, err)
	assert.Len(t, loo, 10)

	_, err = d.Folds(1, 1)
	assert.ErrorIs(t, err, ErrShape)
}
