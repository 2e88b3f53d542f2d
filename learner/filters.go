package learner

import (
	"fmt"
	"math"
	"strconv"

	"github.com/thalesfsp/gridsearch/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// AllFilter.
//////

// AllFilter passes data through unchanged. Searches configured with it skip
// the filtering step entirely.
type AllFilter struct{}

// NewAllFilter returns the no-op filter.
func NewAllFilter() *AllFilter { return &AllFilter{} }

// Properties implements Configurable. AllFilter has no settings.
func (*AllFilter) Properties() Properties { return Properties{} }

// Clone implements Filter.
func (*AllFilter) Clone() Filter { return &AllFilter{} }

// Fit implements Filter.
func (*AllFilter) Fit(*dataset.Dataset) error { return nil }

// Apply implements Filter.
func (*AllFilter) Apply(d *dataset.Dataset) (*dataset.Dataset, error) { return d, nil }

// IsNoOp marks AllFilter as a pass-through.
func (*AllFilter) IsNoOp() bool { return true }

//////
// StandardizeFilter.
//////

// StandardizeFilter rescales every attribute to zero mean and unit variance.
// Constant attributes are only centred. Missing values become 0 (the mean).
type StandardizeFilter struct {
	means   []float64
	stddevs []float64
}

// NewStandardizeFilter returns an unfitted StandardizeFilter.
func NewStandardizeFilter() *StandardizeFilter { return &StandardizeFilter{} }

// Properties implements Configurable. StandardizeFilter has no settings.
func (*StandardizeFilter) Properties() Properties { return Properties{} }

// Clone implements Filter.
func (*StandardizeFilter) Clone() Filter { return &StandardizeFilter{} }

// Fit implements Filter.
func (s *StandardizeFilter) Fit(d *dataset.Dataset) error {
	p := d.NumAttributes()
	s.means = make([]float64, p)
	s.stddevs = make([]float64, p)

	column := make([]float64, 0, d.Len())

	for j := 0; j < p; j++ {
		column = column[:0]

		for _, row := range d.X {
			if !math.IsNaN(row[j]) {
				column = append(column, row[j])
			}
		}

		switch len(column) {
		case 0:
			// Nothing observed: leave mean 0, stddev 0.
		case 1:
			s.means[j] = column[0]
		default:
			s.means[j], s.stddevs[j] = stat.MeanStdDev(column, nil)
		}
	}

	return nil
}

// Apply implements Filter.
func (s *StandardizeFilter) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	if s.means == nil {
		return nil, ErrNotTrained
	}

	if d.NumAttributes() != len(s.means) {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimension, d.NumAttributes(), len(s.means))
	}

	x := make([][]float64, d.Len())

	for i, row := range d.X {
		out := make([]float64, len(row))

		for j, v := range imputed(row, s.means) {
			out[j] = v - s.means[j]
			if s.stddevs[j] > 0 {
				out[j] /= s.stddevs[j]
			}
		}

		x[i] = out
	}

	return d.WithAttributes(d.Attributes, x)
}

//////
// PCAFilter.
//////

// PCAFilter projects the attributes onto their leading principal components.
//
// Properties:
//   - "numComponents" (int): maximum number of components kept; values < 1
//     keep every component
//   - "varianceCovered" (float32): when in (0, 1], keep the fewest components
//     whose cumulative variance ratio reaches it (still capped by
//     numComponents)
type PCAFilter struct {
	NumComponents   int
	VarianceCovered float32

	means   []float64
	vectors *mat.Dense
	kept    int
}

// NewPCAFilter returns a PCAFilter keeping at most five components.
func NewPCAFilter() *PCAFilter {
	return &PCAFilter{NumComponents: 5}
}

// Properties implements Configurable.
func (f *PCAFilter) Properties() Properties {
	return Properties{
		"numComponents":   IntProperty(&f.NumComponents),
		"varianceCovered": Float32Property(&f.VarianceCovered),
	}
}

// Clone implements Filter.
func (f *PCAFilter) Clone() Filter {
	return &PCAFilter{
		NumComponents:   f.NumComponents,
		VarianceCovered: f.VarianceCovered,
	}
}

// Fit implements Filter.
func (f *PCAFilter) Fit(d *dataset.Dataset) error {
	if f.VarianceCovered < 0 || f.VarianceCovered > 1 {
		return fmt.Errorf("%w: varianceCovered must be in [0, 1], got %v", ErrInvalidSetting, f.VarianceCovered)
	}

	n, p := d.Len(), d.NumAttributes()
	means := columnMeans(d.X, p)

	x := mat.NewDense(n, p, nil)
	for i, row := range d.X {
		x.SetRow(i, imputed(row, means))
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return fmt.Errorf("%w: principal component decomposition failed", ErrInvalidSetting)
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	vars := pc.VarsTo(nil)

	_, available := vectors.Dims()

	kept := available
	if f.NumComponents > 0 && f.NumComponents < kept {
		kept = f.NumComponents
	}

	if f.VarianceCovered > 0 {
		var total float64
		for _, v := range vars {
			total += v
		}

		var cumulative float64

		for i, v := range vars[:kept] {
			cumulative += v
			if total > 0 && cumulative/total >= float64(f.VarianceCovered) {
				kept = i + 1
				break
			}
		}
	}

	f.means = means
	f.vectors = &vectors
	f.kept = kept

	return nil
}

// Apply implements Filter.
func (f *PCAFilter) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	if f.vectors == nil {
		return nil, ErrNotTrained
	}

	if d.NumAttributes() != len(f.means) {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimension, d.NumAttributes(), len(f.means))
	}

	names := make([]string, f.kept)
	for c := range names {
		names[c] = "pc" + strconv.Itoa(c+1)
	}

	x := make([][]float64, d.Len())

	for i, row := range d.X {
		centred := imputed(row, f.means)
		out := make([]float64, f.kept)

		for c := 0; c < f.kept; c++ {
			var v float64
			for j, value := range centred {
				v += (value - f.means[j]) * f.vectors.At(j, c)
			}

			out[c] = v
		}

		x[i] = out
	}

	return d.WithAttributes(names, x)
}

// Components returns the number of components kept by the last Fit.
func (f *PCAFilter) Components() int { return f.kept }

//////
// MultiFilter.
//////

// MultiFilter chains filters, feeding the output of each into the next.
// Children are addressed by index in property paths, so "1.numComponents"
// designates the numComponents property of the second filter.
type MultiFilter struct {
	Filters []Filter
}

// NewMultiFilter chains the given filters.
func NewMultiFilter(filters ...Filter) *MultiFilter {
	return &MultiFilter{Filters: filters}
}

// Properties implements Configurable. Settings live on the children.
func (*MultiFilter) Properties() Properties { return Properties{} }

// Child implements Composite.
func (m *MultiFilter) Child(name string) (Configurable, bool) {
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= len(m.Filters) {
		return nil, false
	}

	return m.Filters[i], true
}

// Clone implements Filter.
func (m *MultiFilter) Clone() Filter {
	filters := make([]Filter, len(m.Filters))
	for i, f := range m.Filters {
		filters[i] = f.Clone()
	}

	return &MultiFilter{Filters: filters}
}

// Fit implements Filter. Each child is fitted on the output of the previous one.
func (m *MultiFilter) Fit(d *dataset.Dataset) error {
	current := d

	for i, f := range m.Filters {
		if err := f.Fit(current); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}

		next, err := f.Apply(current)
		if err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}

		current = next
	}

	return nil
}

// Apply implements Filter.
func (m *MultiFilter) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	current := d

	for i, f := range m.Filters {
		next, err := f.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}

		current = next
	}

	return current, nil
}

// IsNoOp reports whether every child is a pass-through.
func (m *MultiFilter) IsNoOp() bool {
	for _, f := range m.Filters {
		if !IsNoOp(f) {
			return false
		}
	}

	return true
}
