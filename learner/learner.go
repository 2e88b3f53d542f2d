// Package learner defines the configurable components tuned by the grid
// search, a learning algorithm (Classifier) and a preprocessing transform
// (Filter), together with a small set of concrete implementations.
//
// Every component exposes its tunable settings through a Properties dispatch
// table and produces independent copies through Clone, so concurrent
// evaluations never share configuration state.
package learner

import (
	"errors"

	"github.com/thalesfsp/gridsearch/dataset"
)

var (
	// ErrNotTrained indicates Predict or Apply was called before Train or Fit.
	ErrNotTrained = errors.New("learner: model has not been trained")

	// ErrUnsupportedClass indicates a learner that cannot handle the class
	// type of the dataset it was given.
	ErrUnsupportedClass = errors.New("learner: unsupported class type")

	// ErrInvalidSetting indicates a property value the learner cannot work with.
	ErrInvalidSetting = errors.New("learner: invalid setting")

	// ErrDimension indicates an input row with the wrong number of attributes.
	ErrDimension = errors.New("learner: attribute count mismatch")
)

// Classifier is a trainable learning algorithm. It covers both regression
// (numeric class) and classification (nominal class).
type Classifier interface {
	Configurable

	// Clone returns an untrained copy carrying the same settings.
	Clone() Classifier

	// Train fits the model on d.
	Train(d *dataset.Dataset) error

	// Predict returns a one-element slice holding the predicted value for a
	// numeric class, or the class probability distribution for a nominal one.
	Predict(x []float64) ([]float64, error)
}

// Filter is a trainable transform over the attribute columns of a dataset.
type Filter interface {
	Configurable

	// Clone returns an unfitted copy carrying the same settings.
	Clone() Filter

	// Fit learns the transform from d.
	Fit(d *dataset.Dataset) error

	// Apply transforms d. The class column is passed through.
	Apply(d *dataset.Dataset) (*dataset.Dataset, error)
}

// IsNoOp reports whether f is configured to leave data untouched, in which
// case callers skip filtering entirely.
func IsNoOp(f Filter) bool {
	n, ok := f.(interface{ IsNoOp() bool })

	return ok && n.IsNoOp()
}
