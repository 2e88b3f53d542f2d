// Package evaluation estimates the performance of a filter and classifier
// pair by k-fold cross-validation.
//
// The filter is fitted on the training part of every fold only, so the test
// instances never leak into the preprocessing. The result is a Metrics vector
// holding every statistic the grid search can rank on; statistics that do not
// apply to the class type of the data are NaN.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/learner"
)

//////
// Const, vars, types.
//////

// ErrFolds indicates a fold count that cannot drive a cross-validation.
var ErrFolds = errors.New("evaluation: invalid number of folds")

// Metrics is the outcome of one cross-validation.
//
// Fields:
//   - CorrelationCoefficient: Pearson correlation between predictions and
//     actual values (numeric class only)
//   - RMSE, MAE: root mean squared and mean absolute error. For a nominal
//     class they are computed on the predicted distributions against the
//     one-hot encoded actual class.
//   - RRSE, RAE: root relative squared and relative absolute error, in
//     percent, relative to predicting the training-fold prior
//   - Combined: (1 - |CC|) + RRSE/100 + RAE/100 (numeric class only)
//   - Accuracy: percentage of correctly classified instances (nominal only)
//   - Kappa: Cohen's kappa (nominal only)
//   - WeightedAUC: area under the ROC curve, one-vs-rest per class, averaged
//     with class frequency weights (nominal only)
//   - Instances: number of predictions the statistics are computed over
//   - Folds: number of folds actually used
type Metrics struct {
	CorrelationCoefficient float64
	RMSE                   float64
	RRSE                   float64
	MAE                    float64
	RAE                    float64
	Combined               float64
	Accuracy               float64
	Kappa                  float64
	WeightedAUC            float64
	Instances              int
	Folds                  int
}

//////
// Exported functionalities.
//////

// CrossValidate runs a seeded k-fold cross-validation of classifier c on d,
// with f applied as preprocessing. A nil or no-op filter skips the
// filtering step; the numeric cleanup always runs.
//
// The filter is fitted on the training part of every fold, not once on the
// whole of d before splitting; scores differ from filter-then-cross-validate.
//
// Parameters:
//   - ctx: checked between folds; cancellation aborts with ctx.Err()
//   - c: classifier template, cloned for every fold
//   - f: filter template, cloned for every fold, may be nil
//   - d: data with no missing class value
//   - folds: number of folds, at least 2; lowered to d.Len() when larger
//   - seed: seed of the instance shuffle
//
// Returns:
//   - Metrics over the pooled out-of-fold predictions
//   - error if a fold fails to train or predict
//
// Usage example:
//
//	m, err := evaluation.CrossValidate(ctx, learner.NewLinearRegression(), nil, data, 10, 1)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(m.RMSE)
//
// Thread safety:
//   - The templates are only cloned, never trained, so the same c and f can
//     be passed to concurrent calls
func CrossValidate(
	ctx context.Context,
	c learner.Classifier,
	f learner.Filter,
	d *dataset.Dataset,
	folds int,
	seed int64,
) (Metrics, error) {
	if folds < 2 {
		return Metrics{}, fmt.Errorf("%w: need at least 2, got %d", ErrFolds, folds)
	}

	splits, err := d.Folds(folds, seed)
	if err != nil {
		return Metrics{}, err
	}

	var acc accumulator
	if d.ClassType == dataset.Nominal {
		acc = newNominalAccumulator(d.NumClasses())
	} else {
		acc = &numericAccumulator{}
	}

	for i, split := range splits {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}

		fitted, train, err := Prepare(f, split.Train)
		if err != nil {
			return Metrics{}, fmt.Errorf("fold %d: filter: %w", i, err)
		}

		test, err := transform(fitted, split.Test)
		if err != nil {
			return Metrics{}, fmt.Errorf("fold %d: filter: %w", i, err)
		}

		model := c.Clone()
		if err := model.Train(train); err != nil {
			return Metrics{}, fmt.Errorf("fold %d: train: %w", i, err)
		}

		acc.setPrior(train)

		for j, row := range test.X {
			actual := test.Y[j]
			if math.IsNaN(actual) {
				continue
			}

			prediction, err := model.Predict(row)
			if err != nil {
				return Metrics{}, fmt.Errorf("fold %d: predict: %w", i, err)
			}

			if err := acc.add(prediction, actual); err != nil {
				return Metrics{}, fmt.Errorf("fold %d: %w", i, err)
			}
		}
	}

	m := acc.metrics()
	m.Folds = len(splits)

	return m, nil
}

// Prepare fits a clone of f on d and returns the fitted clone with the
// filtered, numerically cleaned data. A nil or no-op filter is returned as is
// and only the cleanup is applied to d.
func Prepare(f learner.Filter, d *dataset.Dataset) (learner.Filter, *dataset.Dataset, error) {
	if f == nil || learner.IsNoOp(f) {
		return f, dataset.DefaultNumericCleaner().Clean(d), nil
	}

	fitted := f.Clone()
	if err := fitted.Fit(d); err != nil {
		return nil, nil, err
	}

	out, err := fitted.Apply(d)
	if err != nil {
		return nil, nil, err
	}

	return fitted, dataset.DefaultNumericCleaner().Clean(out), nil
}

// transform applies a fitted filter to held-out data, then cleans it.
func transform(f learner.Filter, d *dataset.Dataset) (*dataset.Dataset, error) {
	if f == nil || learner.IsNoOp(f) {
		return dataset.DefaultNumericCleaner().Clean(d), nil
	}

	out, err := f.Apply(d)
	if err != nil {
		return nil, err
	}

	return dataset.DefaultNumericCleaner().Clean(out), nil
}
