package gridsearch

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/evaluation"
)

//////
// Const, vars, types.
//////

// Metrics is the statistics vector produced by one cross-validation.
type Metrics = evaluation.Metrics

// Criterion selects the statistic best points are ranked on.
type Criterion int

const (
	// CC is the correlation coefficient (larger is better).
	CC Criterion = iota

	// RMSE is the root mean squared error (smaller is better).
	RMSE

	// RRSE is the root relative squared error (smaller is better).
	RRSE

	// MAE is the mean absolute error (smaller is better).
	MAE

	// RAE is the relative absolute error (smaller is better).
	RAE

	// Combined is (1 - |CC|) + RRSE/100 + RAE/100 (smaller is better).
	Combined

	// Accuracy is the percentage of correct classifications (larger is
	// better).
	Accuracy

	// Kappa is Cohen's kappa (larger is better).
	Kappa

	// WeightedAUC is the class-weighted area under the ROC curve (larger is
	// better).
	WeightedAUC
)

var criterionNames = map[Criterion]string{
	CC:          "CC",
	RMSE:        "RMSE",
	RRSE:        "RRSE",
	MAE:         "MAE",
	RAE:         "RAE",
	Combined:    "COMB",
	Accuracy:    "ACC",
	Kappa:       "KAP",
	WeightedAUC: "WAUC",
}

// String implements fmt.Stringer.
func (c Criterion) String() string {
	if name, ok := criterionNames[c]; ok {
		return name
	}

	return fmt.Sprintf("Criterion(%d)", int(c))
}

// ParseCriterion returns the criterion with the given name, case-insensitive.
func ParseCriterion(name string) (Criterion, error) {
	for c, n := range criterionNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown criterion %q", ErrInvalidConfig, name)
}

// LargerIsBetter reports whether a higher score means a better point.
func (c Criterion) LargerIsBetter() bool {
	switch c {
	case CC, Accuracy, Kappa, WeightedAUC:
		return true
	default:
		return false
	}
}

// SupportsClass reports whether the criterion is defined for data with the
// given class type.
func (c Criterion) SupportsClass(t dataset.ClassType) bool {
	switch c {
	case CC, Combined:
		return t == dataset.Numeric
	case Accuracy, Kappa, WeightedAUC:
		return t == dataset.Nominal
	default:
		return true
	}
}

//////
// Methods.
//////

// Score returns the statistic selected by c.
func (p *Performance) Score(c Criterion) float64 {
	m := p.Metrics

	switch c {
	case CC:
		return m.CorrelationCoefficient
	case RMSE:
		return m.RMSE
	case RRSE:
		return m.RRSE
	case MAE:
		return m.MAE
	case RAE:
		return m.RAE
	case Combined:
		return m.Combined
	case Accuracy:
		return m.Accuracy
	case Kappa:
		return m.Kappa
	case WeightedAUC:
		return m.WeightedAUC
	default:
		return math.NaN()
	}
}

//////
// Exported functionalities.
//////

// Best returns the best of perfs for criterion c.
//
// The performances are sorted from worst to best with a stable sort and the
// last one wins. A NaN score ranks below any number. Among equal scores the
// point closest to center ranks higher, then the one with the lowest X, then
// the lowest Y, so the outcome does not depend on the order of perfs.
//
// Returns nil for an empty slice.
func Best(perfs []*Performance, c Criterion, center GridPoint) *Performance {
	if len(perfs) == 0 {
		return nil
	}

	sorted := make([]*Performance, len(perfs))
	copy(sorted, perfs)

	sort.SliceStable(sorted, func(i, j int) bool {
		return worse(sorted[i], sorted[j], c, center)
	})

	return sorted[len(sorted)-1]
}

// worse reports whether a ranks strictly below b.
func worse(a, b *Performance, c Criterion, center GridPoint) bool {
	sa, sb := a.Score(c), b.Score(c)

	switch {
	case math.IsNaN(sa) && !math.IsNaN(sb):
		return true
	case !math.IsNaN(sa) && math.IsNaN(sb):
		return false
	case !math.IsNaN(sa) && sa != sb:
		if c.LargerIsBetter() {
			return sa < sb
		}

		return sa > sb
	}

	da, db := distance(a.Point, center), distance(b.Point, center)
	if !approxEqual(da, db) {
		return da > db
	}

	if !approxEqual(a.Point.X, b.Point.X) {
		return a.Point.X > b.Point.X
	}

	return a.Point.Y > b.Point.Y+Tolerance
}

func distance(a, b GridPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// IsUniform reports whether every performance has the same score for c.
// NaN scores are considered equal to each other.
func IsUniform(perfs []*Performance, c Criterion) bool {
	if len(perfs) == 0 {
		return false
	}

	first := perfs[0].Score(c)

	for _, p := range perfs[1:] {
		s := p.Score(c)

		if math.IsNaN(first) && math.IsNaN(s) {
			continue
		}

		if s != first {
			return false
		}
	}

	return true
}
