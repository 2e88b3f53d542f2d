package learner

import (
	"fmt"
	"math"
	"sort"

	"github.com/thalesfsp/gridsearch/dataset"
)

const (
	// MetricEuclidean is the straight-line distance.
	MetricEuclidean = "euclidean"

	// MetricManhattan is the sum of absolute differences.
	MetricManhattan = "manhattan"
)

// KNearestNeighbours is an instance-based learner working with numeric and
// nominal classes. Attributes are rescaled to [0, 1] using the training
// range before distances are computed.
//
// Properties:
//   - "k" (int): number of neighbours
//   - "distanceWeighting" (bool): weight neighbours by inverse distance
//   - "metric" (string): MetricEuclidean or MetricManhattan
type KNearestNeighbours struct {
	K                 int
	DistanceWeighting bool
	Metric            string

	x          [][]float64
	y          []float64
	classType  dataset.ClassType
	numClasses int
	means      []float64
	span       []float64
}

// NewKNearestNeighbours returns a 1-NN learner with Euclidean distance.
func NewKNearestNeighbours() *KNearestNeighbours {
	return &KNearestNeighbours{
		K:      1,
		Metric: MetricEuclidean,
	}
}

// Properties implements Configurable.
func (k *KNearestNeighbours) Properties() Properties {
	return Properties{
		"k":                 IntProperty(&k.K),
		"distanceWeighting": BoolProperty(&k.DistanceWeighting),
		"metric":            StringProperty(&k.Metric),
	}
}

// Clone implements Classifier.
func (k *KNearestNeighbours) Clone() Classifier {
	return &KNearestNeighbours{
		K:                 k.K,
		DistanceWeighting: k.DistanceWeighting,
		Metric:            k.Metric,
	}
}

// Train implements Classifier.
func (k *KNearestNeighbours) Train(d *dataset.Dataset) error {
	if k.K < 1 {
		return fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidSetting, k.K)
	}

	if k.Metric != MetricEuclidean && k.Metric != MetricManhattan {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidSetting, k.Metric)
	}

	p := d.NumAttributes()
	means := columnMeans(d.X, p)

	lo := make([]float64, p)
	hi := make([]float64, p)

	for j := range lo {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}

	x := make([][]float64, d.Len())
	for i, row := range d.X {
		x[i] = imputed(row, means)

		for j, v := range x[i] {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}

	span := make([]float64, p)
	for j := range span {
		span[j] = hi[j] - lo[j]
	}

	k.x = x
	k.y = d.Y
	k.classType = d.ClassType
	k.numClasses = d.NumClasses()
	k.means = means
	k.span = span

	return nil
}

// Predict implements Classifier.
func (k *KNearestNeighbours) Predict(x []float64) ([]float64, error) {
	if k.x == nil {
		return nil, ErrNotTrained
	}

	if len(x) != len(k.means) {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimension, len(x), len(k.means))
	}

	x = imputed(x, k.means)

	type neighbour struct {
		index    int
		distance float64
	}

	neighbours := make([]neighbour, len(k.x))
	for i, row := range k.x {
		neighbours[i] = neighbour{index: i, distance: k.distance(x, row)}
	}

	sort.SliceStable(neighbours, func(a, b int) bool {
		return neighbours[a].distance < neighbours[b].distance
	})

	n := k.K
	if n > len(neighbours) {
		n = len(neighbours)
	}

	if k.classType == dataset.Nominal {
		dist := make([]float64, k.numClasses)

		var total float64

		for _, nb := range neighbours[:n] {
			w := k.weight(nb.distance)
			dist[int(k.y[nb.index])] += w
			total += w
		}

		for c := range dist {
			dist[c] /= total
		}

		return dist, nil
	}

	var sum, total float64

	for _, nb := range neighbours[:n] {
		w := k.weight(nb.distance)
		sum += w * k.y[nb.index]
		total += w
	}

	return []float64{sum / total}, nil
}

func (k *KNearestNeighbours) weight(distance float64) float64 {
	if !k.DistanceWeighting {
		return 1
	}

	return 1 / (distance + 1e-9)
}

func (k *KNearestNeighbours) distance(a, b []float64) float64 {
	var sum float64

	for j := range a {
		diff := a[j] - b[j]
		if k.span[j] > 0 {
			diff /= k.span[j]
		}

		if k.Metric == MetricManhattan {
			sum += math.Abs(diff)
		} else {
			sum += diff * diff
		}
	}

	if k.Metric == MetricManhattan {
		return sum
	}

	return math.Sqrt(sum)
}
