package gridsearch

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/learner"
)

// dials is a classifier exposing one property of every kind. It learns
// nothing and predicts the sum of its x and y settings.
type dials struct {
	X     float64
	Y     float64
	F32   float32
	Int   int
	Int64 int64
	Bool  bool
	Rune  rune
	Name  string
}

func (p *dials) Properties() learner.Properties {
	return learner.Properties{
		"x":     learner.Float64Property(&p.X),
		"y":     learner.Float64Property(&p.Y),
		"f32":   learner.Float32Property(&p.F32),
		"int":   learner.IntProperty(&p.Int),
		"int64": learner.Int64Property(&p.Int64),
		"bool":  learner.BoolProperty(&p.Bool),
		"rune":  learner.RuneProperty(&p.Rune),
		"name":  learner.StringProperty(&p.Name),
	}
}

func (p *dials) Clone() learner.Classifier {
	clone := *p

	return &clone
}

func (*dials) Train(*dataset.Dataset) error { return nil }

func (p *dials) Predict([]float64) ([]float64, error) { return []float64{p.X + p.Y}, nil }

// pointCmp compares grid points with the search tolerance.
var pointCmp = cmp.Comparer(func(a, b GridPoint) bool { return a.Equal(b) })

// tinyData returns a small numeric dataset.
func tinyData(t *testing.T) *dataset.Dataset {
	t.Helper()

	d, err := dataset.NewNumeric(
		[]string{"a"},
		"y",
		[][]float64{{1}, {2}, {3}, {4}},
		[]float64{1, 2, 3, 4},
	)
	require.NoError(t, err)

	return d
}

// stubConfig returns a configuration searching the dials's x and y over the
// default grid, ranked on RMSE.
func stubConfig() Config {
	config := DefaultConfig()

	config.X = Axis{Property: "classifier.x", Min: 5, Max: 20, Step: 1, Expression: "I"}
	config.Y = Axis{Property: "classifier.y", Min: -10, Max: 5, Step: 1, Expression: "I"}
	config.Classifier = &dials{}
	config.Filter = learner.NewAllFilter()
	config.Criterion = RMSE

	return config
}

// scoreEvaluator returns an evaluator whose RMSE at a point is score(point).
func scoreEvaluator(score func(GridPoint) float64) func(*dataset.Dataset) PointEvaluator {
	return func(*dataset.Dataset) PointEvaluator {
		return func(_ context.Context, folds int, p GridPoint) (*Performance, error) {
			return &Performance{Point: p, Folds: folds, Metrics: Metrics{RMSE: score(p)}}, nil
		}
	}
}

// newStubSearcher builds a Searcher for config whose evaluations use score.
func newStubSearcher(t *testing.T, config Config, score func(GridPoint) float64) *Searcher {
	t.Helper()

	s, err := New(config)
	require.NoError(t, err)

	s.newEvaluator = scoreEvaluator(score)

	return s
}
