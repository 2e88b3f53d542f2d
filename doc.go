// Package gridsearch provides a two-dimensional grid search over the
// settings of a learning pipeline: one property of a preprocessing filter or
// classifier on the X axis, another on the Y axis. It finds the pair of values
// that optimizes a cross-validated performance criterion, then fits the
// pipeline with them.
//
// # Features
//
// The package includes the following key features:
//
//   - Coarse-to-fine search: a cheap pass over the whole grid with few folds,
//     then hill-climbing over 3x3 neighbourhoods with more folds
//   - Grid extension: when the optimum sits on the border, the grid grows
//     outward by whole steps, up to a configured number of times
//   - Expression mapping: grid coordinates become property values through
//     arithmetic expressions such as "pow(BASE,I)"
//   - Parallel evaluation: a bounded worker pool with fail-fast semantics;
//     the first failed point aborts its batch
//   - Memoization: every (fold count, point) pair is computed once per run
//   - Progress Monitoring: updates on search phases via channels
//   - Tracing: an optional sink receives every computed point
//
// # Installation
//
// To install the package, use:
//
//	go get github.com/thalesfsp/gridsearch
//
// # Search
//
// The search runs the following phases:
//
//  1. CoarseSearch: evaluate every grid point with Config.CoarseFolds
//  2. Refining: re-centre a 3x3 neighbourhood on the best point, evaluate
//     it with Config.RefineFolds, repeat while the best point moves
//  3. Extending: when the best point reaches the border, grow the grid if
//     allowed, then keep refining
//  4. Converged: fit the filter and classifier with the winning values
//
// The search stops with one of the StopReason values: uniform-performance,
// no-improvement, border-reached or max-extensions-reached.
//
// # Criteria
//
// Correlation coefficient, accuracy, kappa and weighted AUC are maximized.
// RMSE, RRSE, MAE, RAE and the combined score are minimized. Ties go to the
// point closest to the centre of the evaluated grid, then to the lowest X,
// then the lowest Y.
//
// # Configuration
//
// The Config struct allows customization of the search process:
//
//	config := gridsearch.DefaultConfig()
//	config.X = gridsearch.Axis{
//	    Property:   "filter.numComponents",
//	    Min:        1,
//	    Max:        10,
//	    Step:       1,
//	    Expression: "I",
//	}
//	config.Y = gridsearch.Axis{
//	    Property:   "classifier.ridge",
//	    Min:        -6,
//	    Max:        2,
//	    Step:       1,
//	    Base:       10,
//	    Expression: "pow(BASE,I)",
//	}
//	config.Parallelism = runtime.NumCPU()
//	config.GridIsExtendable = true
//
// Property paths start with "classifier." or "filter." and may walk into
// composite components, e.g. "filter.1.numComponents" for the second filter
// of a learner.MultiFilter.
//
// # Thread Safety
//
// All components are designed to be thread-safe:
//   - Config templates are cloned for every evaluation and never trained
//   - The result cache and the batch counters are guarded by locks
//   - Progress channel updates never block the search
package gridsearch
