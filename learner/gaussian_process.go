package learner

import (
	"fmt"
	"math"
	"sync"

	"github.com/thalesfsp/gridsearch/dataset"
	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// GaussianProcess implements Gaussian Process regression with a Radial Basis
// Function kernel for numeric classes.
//
// Properties:
//   - "sigma" (float64): kernel width. Larger values = smoother interpolation,
//     smaller values = more local influence
//   - "noise" (float64): observation noise added to the kernel diagonal
//
// Fields:
//   - mu: RWMutex guarding the fitted state
//   - x: training inputs (missing values imputed)
//   - alpha: K⁻¹(y - mean), the weights applied to kernel similarities
//   - mean: training class mean, used as the prior mean
//
// Thread safety:
//   - Train takes the write lock, Predict the read lock
//   - A fitted model can serve concurrent Predict calls
//
// Memory usage:
//   - O(n) training rows are retained plus the O(n²) kernel matrix during Train.
type GaussianProcess struct {
	Sigma float64
	Noise float64

	mu    sync.RWMutex
	x     [][]float64
	alpha []float64
	mean  float64
	means []float64
}

//////
// Methods.
//////

// RBFKernel measures the similarity between two points, decreasing
// exponentially with their squared Euclidean distance.
//
// Mathematical formula:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// Important notes:
//   - Returns 1.0 for identical points
//   - Returns values close to 0.0 for distant points
//   - Panics if input vectors have different lengths
func (gp *GaussianProcess) RBFKernel(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * gp.Sigma * gp.Sigma))
}

// Properties implements Configurable.
func (gp *GaussianProcess) Properties() Properties {
	return Properties{
		"sigma": Float64Property(&gp.Sigma),
		"noise": Float64Property(&gp.Noise),
	}
}

// Clone implements Classifier.
func (gp *GaussianProcess) Clone() Classifier {
	return &GaussianProcess{
		Sigma: gp.Sigma,
		Noise: gp.Noise,
	}
}

// Train fits the model on d.
//
// The kernel matrix K + noise*I is factorised with a Cholesky decomposition;
// a matrix that is not positive definite (typically zero noise with
// duplicated rows) is reported as ErrInvalidSetting.
//
// Performance considerations:
//   - O(n³) time, O(n²) memory, n being the number of training rows.
func (gp *GaussianProcess) Train(d *dataset.Dataset) error {
	if d.ClassType != dataset.Numeric {
		return fmt.Errorf("%w: gaussian process needs a numeric class, got %s", ErrUnsupportedClass, d.ClassType)
	}

	if gp.Sigma <= 0 || gp.Noise < 0 {
		return fmt.Errorf("%w: sigma must be positive and noise non-negative, got sigma=%v noise=%v",
			ErrInvalidSetting, gp.Sigma, gp.Noise)
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()

	n := d.Len()
	means := columnMeans(d.X, d.NumAttributes())

	x := make([][]float64, n)
	for i, row := range d.X {
		x[i] = imputed(row, means)
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := gp.RBFKernel(x[i], x[j])
			if i == j {
				v += gp.Noise
			}

			k.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return fmt.Errorf("%w: kernel matrix is not positive definite (sigma=%v noise=%v)",
			ErrInvalidSetting, gp.Sigma, gp.Noise)
	}

	mean := d.ClassMean()

	y := mat.NewVecDense(n, nil)
	for i, v := range d.Y {
		y.SetVec(i, v-mean)
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, y); err != nil {
		return fmt.Errorf("solving kernel system: %w", err)
	}

	gp.x = x
	gp.means = means
	gp.mean = mean
	gp.alpha = make([]float64, n)

	for i := range gp.alpha {
		gp.alpha[i] = alpha.AtVec(i)
	}

	return nil
}

// Predict estimates the class value at x as the posterior mean
// mean + k(x)ᵀ·alpha.
func (gp *GaussianProcess) Predict(x []float64) ([]float64, error) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if gp.alpha == nil {
		return nil, ErrNotTrained
	}

	if len(x) != len(gp.means) {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimension, len(x), len(gp.means))
	}

	x = imputed(x, gp.means)

	out := gp.mean
	for i, xi := range gp.x {
		out += gp.RBFKernel(x, xi) * gp.alpha[i]
	}

	return []float64{out}, nil
}

//////
// Factory.
//////

// NewGaussianProcess creates a Gaussian Process with kernel width 1.0 and a
// small noise term suitable for standardised inputs.
func NewGaussianProcess() *GaussianProcess {
	return &GaussianProcess{
		Sigma: 1.0,
		Noise: 0.1,
	}
}
