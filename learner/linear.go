package learner

import (
	"errors"
	"fmt"

	"github.com/thalesfsp/gridsearch/dataset"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ridge-regularised least squares for numeric classes.
//
// Properties:
//   - "ridge" (float64): L2 penalty added to the diagonal of XᵀX
//   - "intercept" (bool): fit an unpenalised intercept by centring the data
//
// Missing attribute values are replaced by the training column mean.
type LinearRegression struct {
	Ridge     float64
	Intercept bool

	means        []float64
	coefficients []float64
	bias         float64
}

// NewLinearRegression returns a LinearRegression with a tiny stabilising ridge.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{
		Ridge:     1e-8,
		Intercept: true,
	}
}

// Properties implements Configurable.
func (l *LinearRegression) Properties() Properties {
	return Properties{
		"ridge":     Float64Property(&l.Ridge),
		"intercept": BoolProperty(&l.Intercept),
	}
}

// Clone implements Classifier.
func (l *LinearRegression) Clone() Classifier {
	return &LinearRegression{
		Ridge:     l.Ridge,
		Intercept: l.Intercept,
	}
}

// Train implements Classifier.
func (l *LinearRegression) Train(d *dataset.Dataset) error {
	if d.ClassType != dataset.Numeric {
		return fmt.Errorf("%w: linear regression needs a numeric class, got %s", ErrUnsupportedClass, d.ClassType)
	}

	if l.Ridge < 0 {
		return fmt.Errorf("%w: ridge must be non-negative, got %v", ErrInvalidSetting, l.Ridge)
	}

	n, p := d.Len(), d.NumAttributes()
	means := columnMeans(d.X, p)

	var yMean float64
	if l.Intercept {
		yMean = d.ClassMean()
	}

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)

	for i, row := range d.X {
		for j, v := range imputed(row, means) {
			if l.Intercept {
				v -= means[j]
			}

			x.Set(i, j, v)
		}

		y.SetVec(i, d.Y[i]-yMean)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	for j := 0; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+l.Ridge)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		// An ill-conditioned system still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("solving normal equations: %w", err)
		}
	}

	l.means = means
	l.coefficients = make([]float64, p)

	for j := range l.coefficients {
		l.coefficients[j] = beta.AtVec(j)
	}

	l.bias = 0
	if l.Intercept {
		l.bias = yMean
		for j, c := range l.coefficients {
			l.bias -= c * means[j]
		}
	}

	return nil
}

// Predict implements Classifier.
func (l *LinearRegression) Predict(x []float64) ([]float64, error) {
	if l.coefficients == nil {
		return nil, ErrNotTrained
	}

	if len(x) != len(l.coefficients) {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimension, len(x), len(l.coefficients))
	}

	out := l.bias
	for j, v := range imputed(x, l.means) {
		out += l.coefficients[j] * v
	}

	return []float64{out}, nil
}

// Coefficients returns a copy of the fitted weights.
func (l *LinearRegression) Coefficients() []float64 {
	out := make([]float64, len(l.coefficients))
	copy(out, l.coefficients)

	return out
}
