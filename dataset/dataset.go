// Package dataset provides the tabular data abstraction consumed by the grid
// search: a matrix of numeric attributes plus one class column that is either
// numeric (regression) or nominal (classification).
//
// A Dataset is treated as read-only once built. Every transforming operation
// (Resample, DeleteWithMissingClass, Subset, WithAttributes) returns a new
// Dataset and never mutates the receiver, so a single Dataset can be shared by
// many concurrent evaluations.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

//////
// Const, vars, types.
//////

var (
	// ErrEmpty indicates a dataset without rows or without attributes.
	ErrEmpty = errors.New("dataset: dataset must have at least one row and one attribute")

	// ErrShape indicates rows of differing lengths or a class column whose
	// length does not match the number of rows.
	ErrShape = errors.New("dataset: inconsistent shape")

	// ErrNoClass indicates the requested class column does not exist.
	ErrNoClass = errors.New("dataset: class column not found")

	// ErrClassValue indicates a nominal class index outside the label range.
	ErrClassValue = errors.New("dataset: class value out of range")
)

// ClassType distinguishes regression from classification problems.
type ClassType int

const (
	// Numeric marks a real-valued class (regression).
	Numeric ClassType = iota

	// Nominal marks a categorical class (classification). Class values are
	// stored as label indices.
	Nominal
)

// String implements fmt.Stringer.
func (c ClassType) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Nominal:
		return "nominal"
	default:
		return fmt.Sprintf("ClassType(%d)", int(c))
	}
}

// Dataset is an immutable table of instances.
//
// Fields:
//   - Attributes: names of the attribute columns, one per entry of each row
//   - ClassName: name of the class column
//   - ClassType: Numeric or Nominal
//   - Labels: class labels for a Nominal class (index i is label i)
//   - X: attribute values, X[i][j] is attribute j of instance i
//   - Y: class values; a label index for Nominal classes. NaN marks a missing
//     class value.
type Dataset struct {
	Attributes []string
	ClassName  string
	ClassType  ClassType
	Labels     []string
	X          [][]float64
	Y          []float64
}

//////
// Factory.
//////

// NewNumeric builds a regression dataset.
func NewNumeric(attributes []string, className string, x [][]float64, y []float64) (*Dataset, error) {
	d := &Dataset{
		Attributes: attributes,
		ClassName:  className,
		ClassType:  Numeric,
		X:          x,
		Y:          y,
	}

	if err := d.validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// NewNominal builds a classification dataset. Each y value must be NaN
// (missing) or an index into labels.
func NewNominal(attributes []string, className string, labels []string, x [][]float64, y []float64) (*Dataset, error) {
	d := &Dataset{
		Attributes: attributes,
		ClassName:  className,
		ClassType:  Nominal,
		Labels:     labels,
		X:          x,
		Y:          y,
	}

	if err := d.validate(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Dataset) validate() error {
	if len(d.X) == 0 || len(d.Attributes) == 0 {
		return ErrEmpty
	}

	if len(d.Y) != len(d.X) {
		return fmt.Errorf("%w: %d rows but %d class values", ErrShape, len(d.X), len(d.Y))
	}

	for i, row := range d.X {
		if len(row) != len(d.Attributes) {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrShape, i, len(row), len(d.Attributes))
		}
	}

	if d.ClassType == Nominal {
		for i, v := range d.Y {
			if math.IsNaN(v) {
				continue
			}

			if v < 0 || int(v) >= len(d.Labels) || v != math.Trunc(v) {
				return fmt.Errorf("%w: row %d has class %v with %d labels", ErrClassValue, i, v, len(d.Labels))
			}
		}
	}

	return nil
}

//////
// Methods.
//////

// Len returns the number of instances.
func (d *Dataset) Len() int { return len(d.X) }

// NumAttributes returns the number of attribute columns.
func (d *Dataset) NumAttributes() int { return len(d.Attributes) }

// NumClasses returns the number of labels of a Nominal class and 1 for a
// Numeric class.
func (d *Dataset) NumClasses() int {
	if d.ClassType == Nominal {
		return len(d.Labels)
	}

	return 1
}

// Subset returns a dataset holding the instances at the given indices, in
// order. Rows are shared with the receiver, not copied.
func (d *Dataset) Subset(indices []int) *Dataset {
	x := make([][]float64, len(indices))
	y := make([]float64, len(indices))

	for i, idx := range indices {
		x[i] = d.X[idx]
		y[i] = d.Y[idx]
	}

	return d.with(x, y)
}

// DeleteWithMissingClass returns a dataset without the instances whose class
// value is missing. The receiver is returned unchanged when nothing is missing.
func (d *Dataset) DeleteWithMissingClass() *Dataset {
	keep := make([]int, 0, len(d.Y))

	for i, v := range d.Y {
		if !math.IsNaN(v) {
			keep = append(keep, i)
		}
	}

	if len(keep) == len(d.Y) {
		return d
	}

	return d.Subset(keep)
}

// Resample draws a random sub-sample without replacement holding percent% of
// the instances (at least one). A percent of 100 or more returns the receiver
// unchanged. The sample keeps the original instance order.
func (d *Dataset) Resample(percent float64, seed int64) *Dataset {
	if percent >= 100 {
		return d
	}

	n := int(math.Round(float64(d.Len()) * percent / 100))
	if n < 1 {
		n = 1
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(d.Len())[:n]

	// Restore original ordering so the sample stays comparable with the
	// full dataset.
	picked := make([]bool, d.Len())
	for _, idx := range perm {
		picked[idx] = true
	}

	indices := make([]int, 0, n)
	for i, ok := range picked {
		if ok {
			indices = append(indices, i)
		}
	}

	return d.Subset(indices)
}

// WithAttributes returns a dataset sharing the class column of the receiver
// but holding new attribute values. Filters use it to emit their output.
func (d *Dataset) WithAttributes(attributes []string, x [][]float64) (*Dataset, error) {
	out := d.with(x, d.Y)
	out.Attributes = attributes

	if err := out.validate(); err != nil {
		return nil, err
	}

	return out, nil
}

// ClassMean returns the mean of the non-missing class values.
func (d *Dataset) ClassMean() float64 {
	var (
		sum float64
		n   int
	)

	for _, v := range d.Y {
		if math.IsNaN(v) {
			continue
		}

		sum += v
		n++
	}

	if n == 0 {
		return math.NaN()
	}

	return sum / float64(n)
}

// ClassCounts returns, for a Nominal class, the number of instances per label.
func (d *Dataset) ClassCounts() []float64 {
	counts := make([]float64, d.NumClasses())
	if d.ClassType != Nominal {
		return counts
	}

	for _, v := range d.Y {
		if math.IsNaN(v) {
			continue
		}

		counts[int(v)]++
	}

	return counts
}

func (d *Dataset) with(x [][]float64, y []float64) *Dataset {
	return &Dataset{
		Attributes: d.Attributes,
		ClassName:  d.ClassName,
		ClassType:  d.ClassType,
		Labels:     d.Labels,
		X:          x,
		Y:          y,
	}
}
