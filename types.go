package gridsearch

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/thalesfsp/gridsearch/learner"
)

// Phase names reported through ProgressUpdate.
const (
	PhaseCoarseSearch = "CoarseSearch"
	PhaseRefining     = "Refining"
	PhaseExtending    = "Extending"
	PhaseConverged    = "Converged"
)

// ProgressUpdate represents the current state of a search.
type ProgressUpdate struct {
	// RunID identifies the search run.
	RunID string

	// Phase is one of PhaseCoarseSearch, PhaseRefining, PhaseExtending or
	// PhaseConverged.
	Phase string

	// Iteration is the number of refinement batches evaluated so far.
	Iteration int

	// Extensions is the number of grid extensions performed so far.
	Extensions int

	// Grid is the parent grid the search currently climbs on.
	Grid *GridModel

	// CurrentBest is the best point found so far. It is the zero point
	// before the coarse pass completes.
	CurrentBest GridPoint

	// CurrentBestScore is the score of CurrentBest for the configured
	// criterion.
	CurrentBestScore float64

	// StopReason is set on the PhaseConverged update only.
	StopReason StopReason
}

// StopReason tells why the hill-climbing stopped.
type StopReason string

const (
	// StopUniformPerformance means every point of the last evaluated grid
	// scored the same.
	StopUniformPerformance StopReason = "uniform-performance"

	// StopNoImprovement means refining around the best point returned the
	// same point.
	StopNoImprovement StopReason = "no-improvement"

	// StopBorderReached means the best point lies on the border and the grid
	// may not be extended.
	StopBorderReached StopReason = "border-reached"

	// StopMaxExtensions means the best point lies on the border and the
	// configured number of extensions is exhausted.
	StopMaxExtensions StopReason = "max-extensions-reached"
)

// Axis describes one search dimension: the grid coordinates it spans and how
// a coordinate turns into the value assigned to a property.
//
// Fields:
//   - Property: property path, prefixed with "classifier." or "filter." to
//     select the component it applies to, e.g. "filter.numComponents" or
//     "filter.1.numComponents" for the second child of a MultiFilter
//   - Min, Max, Step: grid coordinate bounds (inclusive) and spacing
//   - Base: value bound to BASE in Expression
//   - Expression: maps the coordinate I to the property value. Symbols BASE,
//     FROM (Min), TO (Max), STEP and I are bound, as are the functions pow,
//     log, log10, exp, sqrt, sin, cos and tan. Examples: "I",
//     "pow(BASE,I)", "BASE^I".
//   - Label: axis name used in logs and results; defaults to Property
type Axis struct {
	Property   string  `mapstructure:"property" yaml:"property"`
	Min        float64 `mapstructure:"min" yaml:"min"`
	Max        float64 `mapstructure:"max" yaml:"max"`
	Step       float64 `mapstructure:"step" yaml:"step"`
	Base       float64 `mapstructure:"base" yaml:"base"`
	Expression string  `mapstructure:"expression" yaml:"expression"`
	Label      string  `mapstructure:"label" yaml:"label,omitempty"`
}

// label returns the axis name.
func (a Axis) label() string {
	if a.Label != "" {
		return a.Label
	}

	return a.Property
}

// Performance is the outcome of evaluating one grid point with one fold
// count. It is immutable once stored in the cache.
type Performance struct {
	Point   GridPoint
	Folds   int
	Metrics Metrics
}

// PointEvaluator computes the performance of one grid point with the given
// number of cross-validation folds. It must be safe for concurrent use.
type PointEvaluator func(ctx context.Context, folds int, point GridPoint) (*Performance, error)

// TraceEntry describes one freshly computed grid point.
type TraceEntry struct {
	RunID       string
	Folds       int
	Point       GridPoint
	XValue      float64
	YValue      float64
	Performance *Performance
}

// Tracer receives every freshly computed grid point of a search. Trace may
// be called concurrently. Errors are logged and otherwise ignored.
type Tracer interface {
	Trace(entry TraceEntry) error
}

// Config holds all configuration parameters of a search.
//
// Fields explanation:
//   - X, Y: the two search axes
//   - Classifier, Filter: templates of the tuned components; they are never
//     trained or modified, only cloned
//   - Criterion: the statistic the best point is selected on
//   - Parallelism: number of concurrent evaluations; values < 1 mean 1
//   - GridIsExtendable, MaxGridExtensions: whether, and how many times, the
//     grid may grow when the best point lies on its border
//   - SampleSizePercent: share of the data used while searching; 100 uses
//     everything
//   - Seed: seed of the sub-sample and of the cross-validation shuffles
//   - CoarseFolds, RefineFolds: folds of the initial pass and of the
//     refinement passes; they must differ
//   - Logger: nil discards logs
//   - ProgressChan: receives ProgressUpdate values; nil sends nothing, a full
//     channel drops updates
//   - Tracer: optional sink for every computed point
//
// Usage example:
//
//	config := gridsearch.DefaultConfig()
//	config.Parallelism = runtime.NumCPU()
//	config.GridIsExtendable = true
//
//	searcher, err := gridsearch.New(config)
//	if err != nil {
//	    return err
//	}
//
//	result, err := searcher.Search(ctx, data)
//
// Note:
//   - Create separate configs for parallel searches sharing no templates.
type Config struct {
	X Axis
	Y Axis

	Classifier learner.Classifier
	Filter     learner.Filter
	Criterion  Criterion

	Parallelism       int
	GridIsExtendable  bool
	MaxGridExtensions int
	SampleSizePercent float64
	Seed              int64

	CoarseFolds int
	RefineFolds int

	Logger       logrus.FieldLogger
	ProgressChan chan<- ProgressUpdate
	Tracer       Tracer
}
