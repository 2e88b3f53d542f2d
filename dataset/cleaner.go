package dataset

import "math"

// NumericCleaner is the numeric-stability pass run over filtered data before
// it is cross-validated. It clamps values beyond the thresholds and snaps
// values lying within Tolerance of CloseTo onto CloseToDefault, which removes
// the near-zero noise that projections such as PCA leave behind.
//
// The class column is never touched.
type NumericCleaner struct {
	// MinThreshold and MinDefault: values below MinThreshold become MinDefault.
	MinThreshold float64
	MinDefault   float64

	// MaxThreshold and MaxDefault: values above MaxThreshold become MaxDefault.
	MaxThreshold float64
	MaxDefault   float64

	// Values within Tolerance of CloseTo become CloseToDefault.
	CloseTo        float64
	CloseToDefault float64
	Tolerance      float64

	// Decimals rounds every value to that many decimal places. Negative
	// disables rounding.
	Decimals int
}

// DefaultNumericCleaner only snaps values within 1e-6 of zero to zero.
func DefaultNumericCleaner() NumericCleaner {
	return NumericCleaner{
		MinThreshold:   -math.MaxFloat64,
		MinDefault:     -math.MaxFloat64,
		MaxThreshold:   math.MaxFloat64,
		MaxDefault:     math.MaxFloat64,
		CloseTo:        0,
		CloseToDefault: 0,
		Tolerance:      1e-6,
		Decimals:       -1,
	}
}

// Clean returns a cleaned copy of d. NaN attribute values are kept as is.
func (c NumericCleaner) Clean(d *Dataset) *Dataset {
	x := make([][]float64, len(d.X))

	for i, row := range d.X {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = c.cleanValue(v)
		}

		x[i] = out
	}

	return d.with(x, d.Y)
}

func (c NumericCleaner) cleanValue(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}

	switch {
	case v < c.MinThreshold:
		v = c.MinDefault
	case v > c.MaxThreshold:
		v = c.MaxDefault
	case math.Abs(v-c.CloseTo) < c.Tolerance:
		v = c.CloseToDefault
	}

	if c.Decimals >= 0 {
		scale := math.Pow(10, float64(c.Decimals))
		v = math.Round(v*scale) / scale
	}

	return v
}
