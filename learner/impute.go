package learner

import "math"

// columnMeans returns the per-column mean over non-missing values. A column
// with no observed value gets mean 0.
func columnMeans(x [][]float64, cols int) []float64 {
	sums := make([]float64, cols)
	counts := make([]int, cols)

	for _, row := range x {
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}

			sums[j] += v
			counts[j]++
		}
	}

	for j := range sums {
		if counts[j] > 0 {
			sums[j] /= float64(counts[j])
		}
	}

	return sums
}

// imputed returns row with missing values replaced by means. The input is
// returned as is when nothing is missing.
func imputed(row, means []float64) []float64 {
	for j, v := range row {
		if !math.IsNaN(v) {
			continue
		}

		out := make([]float64, len(row))
		copy(out, row[:j])

		for k := j; k < len(row); k++ {
			out[k] = row[k]
			if math.IsNaN(out[k]) {
				out[k] = means[k]
			}
		}

		return out
	}

	return row
}
