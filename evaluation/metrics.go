package evaluation

import (
	"fmt"
	"math"

	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/learner"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// accumulator collects out-of-fold predictions. setPrior is called once per
// fold, before the predictions of that fold are added.
type accumulator interface {
	setPrior(train *dataset.Dataset)
	add(prediction []float64, actual float64) error
	metrics() Metrics
}

// relative returns 100*num/den, or NaN when the baseline error is zero.
func relative(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}

	return 100 * num / den
}

//////
// Numeric class.
//////

type numericAccumulator struct {
	prior     float64
	predicted []float64
	actual    []float64

	sumAbs, sumSq           float64
	priorSumAbs, priorSumSq float64
}

func (a *numericAccumulator) setPrior(train *dataset.Dataset) {
	a.prior = train.ClassMean()
}

func (a *numericAccumulator) add(prediction []float64, actual float64) error {
	if len(prediction) != 1 {
		return fmt.Errorf("%w: numeric prediction has %d values", learner.ErrDimension, len(prediction))
	}

	p := prediction[0]

	a.predicted = append(a.predicted, p)
	a.actual = append(a.actual, actual)

	diff := p - actual
	a.sumAbs += math.Abs(diff)
	a.sumSq += diff * diff

	priorDiff := a.prior - actual
	a.priorSumAbs += math.Abs(priorDiff)
	a.priorSumSq += priorDiff * priorDiff

	return nil
}

func (a *numericAccumulator) metrics() Metrics {
	n := float64(len(a.actual))

	m := Metrics{
		Instances:   len(a.actual),
		Accuracy:    math.NaN(),
		Kappa:       math.NaN(),
		WeightedAUC: math.NaN(),
	}

	if n == 0 {
		m.CorrelationCoefficient = math.NaN()
		m.RMSE, m.RRSE, m.MAE, m.RAE, m.Combined = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()

		return m
	}

	m.MAE = a.sumAbs / n
	m.RMSE = math.Sqrt(a.sumSq / n)
	m.RAE = relative(a.sumAbs, a.priorSumAbs)
	m.RRSE = relative(math.Sqrt(a.sumSq), math.Sqrt(a.priorSumSq))
	m.CorrelationCoefficient = correlation(a.predicted, a.actual)
	m.Combined = (1 - math.Abs(m.CorrelationCoefficient)) + m.RRSE/100 + m.RAE/100

	return m
}

// correlation is the Pearson correlation, 0 when either side is constant.
func correlation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}

	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}

	return stat.Correlation(x, y, nil)
}

//////
// Nominal class.
//////

type nominalAccumulator struct {
	k         int
	prior     []float64
	dists     [][]float64
	actual    []int
	confusion [][]float64

	sumAbs, sumSq           float64
	priorSumAbs, priorSumSq float64
}

func newNominalAccumulator(k int) *nominalAccumulator {
	confusion := make([][]float64, k)
	for i := range confusion {
		confusion[i] = make([]float64, k)
	}

	return &nominalAccumulator{
		k:         k,
		confusion: confusion,
	}
}

// setPrior uses the Laplace-corrected class frequencies of the training fold.
func (a *nominalAccumulator) setPrior(train *dataset.Dataset) {
	counts := train.ClassCounts()

	var total float64
	for _, c := range counts {
		total += c
	}

	a.prior = make([]float64, a.k)
	for c := range a.prior {
		a.prior[c] = (counts[c] + 1) / (total + float64(a.k))
	}
}

func (a *nominalAccumulator) add(prediction []float64, actual float64) error {
	if len(prediction) != a.k {
		return fmt.Errorf("%w: distribution has %d values, expected %d", learner.ErrDimension, len(prediction), a.k)
	}

	dist := make([]float64, a.k)

	var total float64
	for _, p := range prediction {
		total += p
	}

	for c, p := range prediction {
		switch {
		case total > 0:
			dist[c] = p / total
		default:
			dist[c] = 1 / float64(a.k)
		}
	}

	truth := int(actual)

	predicted := 0
	for c, p := range dist {
		if p > dist[predicted] {
			predicted = c
		}
	}

	a.confusion[truth][predicted]++

	for c := 0; c < a.k; c++ {
		var target float64
		if c == truth {
			target = 1
		}

		diff := dist[c] - target
		a.sumAbs += math.Abs(diff)
		a.sumSq += diff * diff

		priorDiff := a.prior[c] - target
		a.priorSumAbs += math.Abs(priorDiff)
		a.priorSumSq += priorDiff * priorDiff
	}

	a.dists = append(a.dists, dist)
	a.actual = append(a.actual, truth)

	return nil
}

func (a *nominalAccumulator) metrics() Metrics {
	n := float64(len(a.actual))

	m := Metrics{
		Instances:              len(a.actual),
		CorrelationCoefficient: math.NaN(),
		Combined:               math.NaN(),
	}

	if n == 0 {
		m.RMSE, m.RRSE, m.MAE, m.RAE = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		m.Accuracy, m.Kappa, m.WeightedAUC = math.NaN(), math.NaN(), math.NaN()

		return m
	}

	cells := n * float64(a.k)

	m.MAE = a.sumAbs / cells
	m.RMSE = math.Sqrt(a.sumSq / cells)
	m.RAE = relative(a.sumAbs, a.priorSumAbs)
	m.RRSE = relative(math.Sqrt(a.sumSq), math.Sqrt(a.priorSumSq))

	var correct, chance float64

	for c := 0; c < a.k; c++ {
		correct += a.confusion[c][c]

		var row, col float64
		for o := 0; o < a.k; o++ {
			row += a.confusion[c][o]
			col += a.confusion[o][c]
		}

		chance += row * col
	}

	correct /= n
	chance /= n * n

	m.Accuracy = 100 * correct

	m.Kappa = 1
	if chance < 1 {
		m.Kappa = (correct - chance) / (1 - chance)
	}

	m.WeightedAUC = a.weightedAUC()

	return m
}

// weightedAUC averages the one-vs-rest AUC of every class that has both
// positive and negative instances, weighted by the class frequency.
func (a *nominalAccumulator) weightedAUC() float64 {
	var sum, weight float64

	for c := 0; c < a.k; c++ {
		auc, positives := a.auc(c)
		if math.IsNaN(auc) {
			continue
		}

		sum += positives * auc
		weight += positives
	}

	if weight == 0 {
		return math.NaN()
	}

	return sum / weight
}

func (a *nominalAccumulator) auc(class int) (float64, float64) {
	scores := make([]float64, len(a.actual))
	labels := make([]bool, len(a.actual))

	var positives float64

	for i, truth := range a.actual {
		scores[i] = a.dists[i][class]
		labels[i] = truth == class

		if labels[i] {
			positives++
		}
	}

	if positives == 0 || positives == float64(len(a.actual)) {
		return math.NaN(), positives
	}

	stat.SortWeightedLabeled(scores, labels, nil)

	tpr, fpr, _ := stat.ROC(nil, scores, labels, nil)

	return integrate.Trapezoidal(fpr, tpr), positives
}
