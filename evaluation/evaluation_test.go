package evaluation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/learner"
)

// meanClassifier always predicts the training class mean.
type meanClassifier struct{ mean float64 }

func (*meanClassifier) Properties() learner.Properties { return learner.Properties{} }
func (*meanClassifier) Clone() learner.Classifier    { return &meanClassifier{} }

func (m *meanClassifier) Train(d *dataset.Dataset) error {
	m.mean = d.ClassMean()

	return nil
}

func (m *meanClassifier) Predict([]float64) ([]float64, error) { return []float64{m.mean}, nil }

// wideClassifier returns too many values.
type wideClassifier struct{ meanClassifier }

func (*wideClassifier) Clone() learner.Classifier { return &wideClassifier{} }

func (*wideClassifier) Predict([]float64) ([]float64, error) { return []float64{1, 2, 3}, nil }

func linearData(t *testing.T) *dataset.Dataset {
	t.Helper()

	x := make([][]float64, 30)
	y := make([]float64, 30)

	for i := range x {
		a, b := float64(i%6), float64(i/6)
		x[i] = []float64{a, b}
		y[i] = 3*a + b - 2
	}

	d, err := dataset.NewNumeric([]string{"a", "b"}, "y", x, y)
	require.NoError(t, err)

	return d
}

func clusterData(t *testing.T) *dataset.Dataset {
	t.Helper()

	var (
		x [][]float64
		y []float64
	)

	for i := 0; i < 10; i++ {
		offset := float64(i) * 0.1
		x = append(x, []float64{offset, offset}, []float64{10 + offset, 10 - offset})
		y = append(y, 0, 1)
	}

	d, err := dataset.NewNominal([]string{"a", "b"}, "c", []string{"left", "right"}, x, y)
	require.NoError(t, err)

	return d
}

func TestCrossValidateNumericPerfectFit(t *testing.T) {
	m, err := CrossValidate(context.Background(), learner.NewLinearRegression(), nil, linearData(t), 5, 1)
	require.NoError(t, err)

	assert.Equal(t, 30, m.Instances)
	assert.Equal(t, 5, m.Folds)
	assert.InDelta(t, 0, m.RMSE, 1e-6)
	assert.InDelta(t, 0, m.MAE, 1e-6)
	assert.InDelta(t, 0, m.RAE, 1e-4)
	assert.InDelta(t, 1, m.CorrelationCoefficient, 1e-9)
	assert.InDelta(t, 0, m.Combined, 1e-4)
	assert.True(t, math.IsNaN(m.Accuracy))
	assert.True(t, math.IsNaN(m.WeightedAUC))
}

func TestCrossValidatePriorBaseline(t *testing.T) {
	m, err := CrossValidate(context.Background(), &meanClassifier{}, nil, linearData(t), 3, 2)
	require.NoError(t, err)

	assert.InDelta(t, 100, m.RAE, 1e-9)
	assert.InDelta(t, 100, m.RRSE, 1e-9)
}

func TestCrossValidateWithFilter(t *testing.T) {
	m, err := CrossValidate(
		context.Background(),
		learner.NewLinearRegression(),
		learner.NewMultiFilter(learner.NewStandardizeFilter(), learner.NewPCAFilter()),
		linearData(t),
		3,
		1,
	)
	require.NoError(t, err)

	// Both components are kept, so the linear relation survives the rotation.
	assert.InDelta(t, 0, m.RMSE, 1e-4)
}

func TestCrossValidateNominal(t *testing.T) {
	m, err := CrossValidate(context.Background(), learner.NewKNearestNeighbours(), nil, clusterData(t), 4, 3)
	require.NoError(t, err)

	assert.Equal(t, 20, m.Instances)
	assert.InDelta(t, 100, m.Accuracy, 1e-9)
	assert.InDelta(t, 1, m.Kappa, 1e-9)
	assert.InDelta(t, 1, m.WeightedAUC, 1e-9)
	assert.InDelta(t, 0, m.MAE, 1e-9)
	assert.True(t, math.IsNaN(m.CorrelationCoefficient))
	assert.True(t, math.IsNaN(m.Combined))
}

func TestCrossValidateErrors(t *testing.T) {
	d := linearData(t)

	_, err := CrossValidate(context.Background(), learner.NewLinearRegression(), nil, d, 1, 1)
	assert.ErrorIs(t, err, ErrFolds)

	_, err = CrossValidate(context.Background(), &wideClassifier{}, nil, d, 2, 1)
	assert.ErrorIs(t, err, learner.ErrDimension)

	_, err = CrossValidate(context.Background(), learner.NewLinearRegression(), nil, clusterData(t), 2, 1)
	assert.ErrorIs(t, err, learner.ErrUnsupportedClass)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = CrossValidate(ctx, learner.NewLinearRegression(), nil, d, 2, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrossValidateLowersFolds(t *testing.T) {
	d, err := dataset.NewNumeric([]string{"a"}, "y", [][]float64{{1}, {2}, {3}, {4}}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	m, err := CrossValidate(context.Background(), &meanClassifier{}, nil, d, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Folds)
	assert.Equal(t, 4, m.Instances)
}

func TestWeightedAUC(t *testing.T) {
	train := clusterData(t)

	acc := newNominalAccumulator(2)
	acc.setPrior(train)

	scores := []float64{0.1, 0.35, 0.4, 0.8}
	actual := []float64{1, 0, 1, 0}

	for i, s := range scores {
		require.NoError(t, acc.add([]float64{1 - s, s}, actual[i]))
	}

	m := acc.metrics()
	assert.InDelta(t, 0.25, m.WeightedAUC, 1e-9)
	assert.InDelta(t, 25, m.Accuracy, 1e-9)
}

func TestPrepare(t *testing.T) {
	d := linearData(t)

	noop := learner.NewAllFilter()

	fitted, same, err := Prepare(noop, d)
	require.NoError(t, err)
	assert.Equal(t, d.X, same.X)
	assert.Same(t, noop, fitted)

	pca := learner.NewPCAFilter()
	pca.NumComponents = 1

	fitted, out, err := Prepare(pca, d)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumAttributes())
	assert.Equal(t, 1, fitted.(*learner.PCAFilter).Components())
	assert.Equal(t, 0, pca.Components(), "the template itself is not fitted")
}

func TestPrepareCleansWithoutFiltering(t *testing.T) {
	d, err := dataset.NewNumeric([]string{"a", "b"}, "y", [][]float64{{1e-9, 2}, {3, -1e-8}}, []float64{1, 2})
	require.NoError(t, err)

	for _, f := range []learner.Filter{nil, learner.NewAllFilter()} {
		_, out, err := Prepare(f, d)
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{0, 2}, {3, 0}}, out.X)

		held, err := transform(f, d)
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{0, 2}, {3, 0}}, held.X)
	}

	assert.Equal(t, 1e-9, d.X[0][0], "the input is not modified")
}
