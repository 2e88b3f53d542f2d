package gridsearch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/evaluation"
	"github.com/thalesfsp/gridsearch/learner"
)

//////
// Const, vars, types.
//////

// Names accepted by Searcher.Measure.
const (
	MeasureX                  = "measureX"
	MeasureY                  = "measureY"
	MeasureGridExtensionsDone = "measureGridExtensionsPerformed"
)

// Result is the outcome of a completed search.
//
// Fields:
//   - RunID: identifier of the run, also attached to logs and traces
//   - Best: the winning grid point
//   - XValue, YValue: property values Best maps to
//   - Performance: the cached performance of Best
//   - Extensions: number of grid extensions performed
//   - UniformPerformance: true when the search stopped because every point
//     of a grid scored the same
//   - StopReason: why the hill-climbing stopped
//   - Iterations: number of refinement batches evaluated
//   - Grid: the parent grid at the end of the search
//   - Evaluations, CacheHits: coordinator counters for the run
//   - Filter, Classifier: clones configured with XValue and YValue and
//     fitted on the full data
type Result struct {
	RunID              string
	Best               GridPoint
	XValue             float64
	YValue             float64
	Performance        *Performance
	Extensions         int
	UniformPerformance bool
	StopReason         StopReason
	Iterations         int
	Grid               *GridModel
	Evaluations        int64
	CacheHits          int64
	Filter             learner.Filter
	Classifier         learner.Classifier
}

// Searcher runs grid searches for one Config.
//
// Thread safety:
//   - Search may be called concurrently; each call works on its own cache
//     and the last completed run is kept for the accessors.
type Searcher struct {
	config Config
	grid   *GridModel
	mapper *ParameterMapper
	log    logrus.FieldLogger

	// newEvaluator builds the evaluator of a run over the search data.
	newEvaluator func(data *dataset.Dataset) PointEvaluator

	mu   sync.RWMutex
	last *Result
}

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration: the number of principal
// components kept by a PCAFilter (5 to 20) against the ridge of a
// LinearRegression (10^-10 to 10^5), ranked on the correlation coefficient.
func DefaultConfig() Config {
	return Config{
		X: Axis{
			Property:   "filter.numComponents",
			Min:        5,
			Max:        20,
			Step:       1,
			Base:       10,
			Expression: "I",
		},
		Y: Axis{
			Property:   "classifier.ridge",
			Min:        -10,
			Max:        5,
			Step:       1,
			Base:       10,
			Expression: "pow(BASE,I)",
		},
		Classifier:        learner.NewLinearRegression(),
		Filter:            learner.NewPCAFilter(),
		Criterion:         CC,
		Parallelism:       1,
		GridIsExtendable:  false,
		MaxGridExtensions: 3,
		SampleSizePercent: 100,
		Seed:              1,
		CoarseFolds:       2,
		RefineFolds:       10,
		ProgressChan:      nil, // Default to no progress updates.
	}
}

// Validate checks the configuration without touching any data.
func (c Config) Validate() error {
	if c.Classifier == nil || c.Filter == nil {
		return fmt.Errorf("%w: classifier and filter are required", ErrInvalidConfig)
	}

	if _, ok := criterionNames[c.Criterion]; !ok {
		return fmt.Errorf("%w: unknown criterion %d", ErrInvalidConfig, int(c.Criterion))
	}

	if _, err := c.initialGrid(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.MaxGridExtensions < 0 {
		return fmt.Errorf("%w: max grid extensions must not be negative, got %d", ErrInvalidConfig, c.MaxGridExtensions)
	}

	if c.SampleSizePercent <= 0 || c.SampleSizePercent > 100 {
		return fmt.Errorf("%w: sample size must be in (0, 100], got %v", ErrInvalidConfig, c.SampleSizePercent)
	}

	if c.CoarseFolds < 2 || c.RefineFolds < 2 {
		return fmt.Errorf("%w: fold counts must be at least 2, got %d and %d", ErrInvalidConfig, c.CoarseFolds, c.RefineFolds)
	}

	if c.CoarseFolds == c.RefineFolds {
		return fmt.Errorf("%w: coarse and refine fold counts must differ, both are %d", ErrInvalidConfig, c.CoarseFolds)
	}

	return nil
}

func (c Config) initialGrid() (*GridModel, error) {
	return NewGridModel(
		c.X.Min, c.X.Max, c.X.Step, c.X.label(),
		c.Y.Min, c.Y.Max, c.Y.Step, c.Y.label(),
	)
}

// New validates config and returns a Searcher for it.
//
// Configuration errors are reported here rather than during the search:
// invalid grid bounds, expressions that do not compile, property paths that
// do not resolve on the classifier or filter templates, and property kinds
// that cannot receive a numeric value.
func New(config Config) (*Searcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	grid, err := config.initialGrid()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	mapper, err := NewParameterMapper(config.X, config.Y)
	if err != nil {
		return nil, err
	}

	if err := mapper.Check(config.Classifier, config.Filter); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = discardLogger()
	}

	s := &Searcher{
		config: config,
		grid:   grid,
		mapper: mapper,
		log:    logger,
	}

	s.newEvaluator = s.crossValidator

	return s, nil
}

//////
// Methods.
//////

// Search finds the best grid point for data and fits the filter and
// classifier configured for it on the full data.
//
// How it works:
//  1. Rows with a missing class are dropped; the remainder is sub-sampled
//     to SampleSizePercent for every search evaluation
//  2. Coarse pass: every point of the initial grid is evaluated with
//     CoarseFolds. If all score the same, the search stops.
//  3. Refinement: while the best point is interior, its 3x3 neighbourhood
//     is evaluated with RefineFolds and the best neighbour adopted, until
//     the best point stays put or the neighbourhood scores uniformly
//  4. A best point on the border extends the grid when allowed, otherwise
//     the search stops
//  5. The winning values are applied to clones of the templates, which are
//     fitted on the full data
//
// Returns:
//   - *Result: the winning point and the fitted components
//   - error: ErrInvalidArgument for a nil dataset, ErrInvalidConfig for a
//     criterion that does not fit the class type, the first evaluation failure (ErrEvaluation), ctx.Err() on
//     cancellation, or a final fit failure
//
// Usage example:
//
//	searcher, err := gridsearch.New(gridsearch.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	result, err := searcher.Search(ctx, data)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println(result.Best, result.XValue, result.YValue, result.StopReason)
//
// Important notes:
//   - Any evaluation failure aborts the whole search; there are no retries
//   - The templates of the Config are never modified
//
// Performance considerations:
//   - The coarse pass costs width*height evaluations, each refinement at
//     most 9, minus cache hits
//   - Parallelism bounds the number of concurrent evaluations
func (s *Searcher) Search(ctx context.Context, data *dataset.Dataset) (*Result, error) {
	cfg := s.config

	if data == nil {
		return nil, fmt.Errorf("%w: no dataset given", ErrInvalidArgument)
	}

	if !cfg.Criterion.SupportsClass(data.ClassType) {
		return nil, fmt.Errorf("%w: criterion %s does not apply to a %s class", ErrInvalidConfig, cfg.Criterion, data.ClassType)
	}

	runID := uuid.NewString()
	log := s.log.WithField("run_id", runID)

	full := data.DeleteWithMissingClass()
	sample := full.Resample(cfg.SampleSizePercent, cfg.Seed)

	log.WithFields(logrus.Fields{
		"instances": full.Len(),
		"sample":    sample.Len(),
		"grid":      s.grid.String(),
		"criterion": cfg.Criterion.String(),
	}).Info("search started")

	cache := NewResultCache()
	coordinator := NewCoordinator(cache, s.newEvaluator(sample), cfg.Parallelism, log)

	if cfg.Tracer != nil {
		coordinator.onComputed = func(folds int, perf *Performance) {
			x, y := s.mapper.Values(perf.Point)

			entry := TraceEntry{
				RunID:       runID,
				Folds:       folds,
				Point:       perf.Point,
				XValue:      x,
				YValue:      y,
				Performance: perf,
			}

			if err := cfg.Tracer.Trace(entry); err != nil {
				log.WithError(err).Warn("tracing evaluation failed")
			}
		}
	}

	result := &Result{RunID: runID, Grid: s.grid}

	if err := s.climb(ctx, log, coordinator, result); err != nil {
		log.WithError(err).Error("search failed")

		return nil, err
	}

	result.Evaluations = coordinator.Dispatched()
	result.CacheHits = coordinator.CacheHits()
	result.XValue, result.YValue = s.mapper.Values(result.Best)

	if err := s.fit(full, result); err != nil {
		log.WithError(err).Error("final fit failed")

		return nil, err
	}

	log.WithFields(logrus.Fields{
		"best":        result.Best.String(),
		s.grid.labelX: result.XValue,
		s.grid.labelY: result.YValue,
		"extensions":  result.Extensions,
		"iterations":  result.Iterations,
		"stop_reason": string(result.StopReason),
		"evaluations": result.Evaluations,
	}).Info("search converged")

	s.progress(ProgressUpdate{
		RunID:            runID,
		Phase:            PhaseConverged,
		Iteration:        result.Iterations,
		Extensions:       result.Extensions,
		Grid:             result.Grid,
		CurrentBest:      result.Best,
		CurrentBestScore: result.Performance.Score(cfg.Criterion),
		StopReason:       result.StopReason,
	})

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	return result, nil
}

// climb runs the coarse pass and the refinement loop, filling the search
// fields of result.
func (s *Searcher) climb(ctx context.Context, log logrus.FieldLogger, coordinator *Coordinator, result *Result) error {
	cfg := s.config
	grid := s.grid

	s.progress(ProgressUpdate{RunID: result.RunID, Phase: PhaseCoarseSearch, Grid: grid})

	log.WithField("points", grid.Size()).Info("coarse search")

	perfs, err := s.evaluate(ctx, coordinator, grid, cfg.CoarseFolds)
	if err != nil {
		return err
	}

	best := Best(perfs, cfg.Criterion, grid.Center())
	result.Best, result.Performance = best.Point, best

	if IsUniform(perfs, cfg.Criterion) {
		log.Info("uniform performance on the initial grid")

		result.UniformPerformance = true
		result.StopReason = StopUniformPerformance

		return nil
	}

	for {
		idx := grid.Locate(best.Point)

		if grid.IsOnBorder(idx) {
			if !cfg.GridIsExtendable {
				result.StopReason = StopBorderReached

				return nil
			}

			if result.Extensions >= cfg.MaxGridExtensions {
				result.StopReason = StopMaxExtensions

				return nil
			}

			extended, err := grid.Extend(best.Point)
			if err != nil {
				return err
			}

			grid = extended
			result.Extensions++
			result.Grid = grid

			log.WithFields(logrus.Fields{
				"grid":       grid.String(),
				"extensions": result.Extensions,
			}).Info("extending grid")

			s.progress(ProgressUpdate{
				RunID:            result.RunID,
				Phase:            PhaseExtending,
				Iteration:        result.Iterations,
				Extensions:       result.Extensions,
				Grid:             grid,
				CurrentBest:      best.Point,
				CurrentBestScore: best.Score(cfg.Criterion),
			})

			continue
		}

		neighbourhood, err := grid.Subgrid(idx.Y-1, idx.X-1, idx.Y+1, idx.X+1)
		if err != nil {
			return err
		}

		result.Iterations++

		log.WithFields(logrus.Fields{
			"center":    best.Point.String(),
			"iteration": result.Iterations,
		}).Info("refining")

		s.progress(ProgressUpdate{
			RunID:            result.RunID,
			Phase:            PhaseRefining,
			Iteration:        result.Iterations,
			Extensions:       result.Extensions,
			Grid:             grid,
			CurrentBest:      best.Point,
			CurrentBestScore: best.Score(cfg.Criterion),
		})

		perfs, err := s.evaluate(ctx, coordinator, neighbourhood, cfg.RefineFolds)
		if err != nil {
			return err
		}

		candidate := Best(perfs, cfg.Criterion, neighbourhood.Center())

		if IsUniform(perfs, cfg.Criterion) {
			result.Best, result.Performance = candidate.Point, candidate
			result.UniformPerformance = true
			result.StopReason = StopUniformPerformance

			return nil
		}

		if candidate.Point.Equal(best.Point) {
			result.Best, result.Performance = candidate.Point, candidate
			result.StopReason = StopNoImprovement

			return nil
		}

		best = candidate
		result.Best, result.Performance = best.Point, best
	}
}

// evaluate makes sure every point of grid is cached for folds and returns
// their performances. A batch found entirely in the cache is served from it.
func (s *Searcher) evaluate(ctx context.Context, coordinator *Coordinator, grid *GridModel, folds int) ([]*Performance, error) {
	points := grid.Points()

	if err := coordinator.EvaluateBatch(ctx, points, folds); err != nil {
		if !errors.Is(err, ErrDegenerateBatch) {
			return nil, err
		}

		coordinator.log.WithField("grid", grid.String()).Warn("neighbourhood already evaluated, reusing cached results")
	}

	perfs := make([]*Performance, 0, len(points))

	for _, p := range points {
		perf, ok := coordinator.Cache().Get(folds, p)
		if !ok {
			return nil, fmt.Errorf("%w: point %s missing from the cache after evaluation", ErrState, p)
		}

		perfs = append(perfs, perf)
	}

	return perfs, nil
}

// fit configures clones of the templates for the winning point and fits
// them on data.
func (s *Searcher) fit(data *dataset.Dataset, result *Result) error {
	filter, err := s.mapper.SetupFilter(s.config.Filter, result.Best)
	if err != nil {
		return err
	}

	classifier, err := s.mapper.SetupClassifier(s.config.Classifier, result.Best)
	if err != nil {
		return err
	}

	fitted, prepared, err := evaluation.Prepare(filter, data)
	if err != nil {
		return fmt.Errorf("fitting filter: %w", err)
	}

	if err := classifier.Train(prepared); err != nil {
		return fmt.Errorf("training classifier: %w", err)
	}

	result.Filter = fitted
	result.Classifier = classifier

	return nil
}

// crossValidator is the default evaluator: it configures clones of the
// templates for the point and cross-validates them on data.
func (s *Searcher) crossValidator(data *dataset.Dataset) PointEvaluator {
	return func(ctx context.Context, folds int, p GridPoint) (*Performance, error) {
		filter, err := s.mapper.SetupFilter(s.config.Filter, p)
		if err != nil {
			return nil, err
		}

		classifier, err := s.mapper.SetupClassifier(s.config.Classifier, p)
		if err != nil {
			return nil, err
		}

		m, err := evaluation.CrossValidate(ctx, classifier, filter, data, folds, s.config.Seed)
		if err != nil {
			return nil, err
		}

		return &Performance{Point: p, Folds: folds, Metrics: m}, nil
	}
}

// progress sends update without blocking.
func (s *Searcher) progress(update ProgressUpdate) {
	if s.config.ProgressChan == nil {
		return
	}

	select {
	case s.config.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}

// LastResult returns the result of the last completed search.
func (s *Searcher) LastResult() (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil, fmt.Errorf("%w: no search has completed", ErrState)
	}

	return s.last, nil
}

// BestClassifier returns the classifier fitted by the last completed search.
func (s *Searcher) BestClassifier() (learner.Classifier, error) {
	r, err := s.LastResult()
	if err != nil {
		return nil, err
	}

	return r.Classifier, nil
}

// BestFilter returns the filter fitted by the last completed search.
func (s *Searcher) BestFilter() (learner.Filter, error) {
	r, err := s.LastResult()
	if err != nil {
		return nil, err
	}

	return r.Filter, nil
}

// MeasureNames lists the names accepted by Measure.
func (s *Searcher) MeasureNames() []string {
	return []string{MeasureX, MeasureY, MeasureGridExtensionsDone}
}

// Measure returns a named figure of the last completed search: the X or Y
// property value of the best point, or the number of grid extensions.
func (s *Searcher) Measure(name string) (float64, error) {
	r, err := s.LastResult()
	if err != nil {
		return 0, err
	}

	switch name {
	case MeasureX:
		return r.XValue, nil
	case MeasureY:
		return r.YValue, nil
	case MeasureGridExtensionsDone:
		return float64(r.Extensions), nil
	default:
		return 0, fmt.Errorf("%w: unknown measure %q", ErrInvalidArgument, name)
	}
}

// Grid returns the initial grid of the search.
func (s *Searcher) Grid() *GridModel { return s.grid }

// Mapper returns the parameter mapper of the search.
func (s *Searcher) Mapper() *ParameterMapper { return s.mapper }
