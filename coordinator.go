package gridsearch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"github.com/tevino/abool"
)

//////
// Const, vars, types.
//////

// Coordinator evaluates batches of grid points on a bounded worker pool and
// stores the outcomes in a ResultCache.
//
// Fields:
//   - cache: where computed performances are stored and looked up
//   - evaluate: computes the performance of one point
//   - parallelism: maximum number of concurrent evaluations
//   - onComputed: optional hook called after each fresh computation of a
//     batch that has not failed
//   - dispatched, hits: lifetime counters of started evaluations and cache
//     hits
//
// Thread safety:
//   - EvaluateBatch may be called from several goroutines, although a
//     search only ever runs one batch at a time.
type Coordinator struct {
	cache       *ResultCache
	evaluate    PointEvaluator
	parallelism int
	log         logrus.FieldLogger
	onComputed  func(folds int, perf *Performance)

	dispatched atomic.Int64
	hits       atomic.Int64
}

// batch is the completion state of one EvaluateBatch call. completed and
// failed are guarded by one mutex so the completion predicate always sees a
// consistent pair.
type batch struct {
	mu        sync.Mutex
	total     int
	completed int
	failed    int
	firstErr  error
	closed    bool
	done      chan struct{}
	stopped   *abool.AtomicBool
}

//////
// Factory.
//////

// NewCoordinator creates a Coordinator running at most parallelism
// evaluations at once. A parallelism below 1 means 1. A nil logger discards
// logs.
func NewCoordinator(
	cache *ResultCache,
	evaluate PointEvaluator,
	parallelism int,
	logger logrus.FieldLogger,
) *Coordinator {
	if parallelism < 1 {
		parallelism = 1
	}

	if logger == nil {
		logger = discardLogger()
	}

	return &Coordinator{
		cache:       cache,
		evaluate:    evaluate,
		parallelism: parallelism,
		log:         logger,
	}
}

func newBatch(total int) *batch {
	return &batch{
		total:   total,
		done:    make(chan struct{}),
		stopped: abool.New(),
	}
}

//////
// Methods.
//////

func (b *batch) succeed() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.completed++
	b.settle()
}

func (b *batch) fail(err error) {
	b.stopped.Set()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failed++
	if b.firstErr == nil {
		b.firstErr = err
	}

	b.settle()
}

// settle closes done once the batch failed or every task finished. Must be
// called with mu held.
func (b *batch) settle() {
	if b.closed {
		return
	}

	if b.failed > 0 || b.completed+b.failed == b.total {
		b.closed = true
		close(b.done)
	}
}

func (b *batch) err() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.firstErr
}

// EvaluateBatch makes sure every point has a performance for folds in the
// cache, computing the missing ones concurrently.
//
// Parameters:
//   - ctx: cancellation aborts the batch with ctx.Err(); it is also passed
//     to every evaluation
//   - points: the points to evaluate; duplicates are evaluated once
//   - folds: number of cross-validation folds
//
// Returns:
//   - nil once every point is cached
//   - the first evaluation error, wrapping ErrEvaluation. No new evaluation
//     starts after a failure is observed; running ones finish in the
//     background and their results are ignored.
//   - ErrDegenerateBatch if every point was cached already
//
// Usage example:
//
//	if err := coordinator.EvaluateBatch(ctx, grid.Points(), 10); err != nil {
//	    return err
//	}
func (c *Coordinator) EvaluateBatch(ctx context.Context, points []GridPoint, folds int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pending := make([]GridPoint, 0, len(points))

	for _, p := range points {
		if _, ok := c.cache.Get(folds, p); ok {
			c.hits.Add(1)
			continue
		}

		if containsPoint(pending, p) {
			continue
		}

		pending = append(pending, p)
	}

	if len(pending) == 0 {
		return fmt.Errorf("%w: all %d points already evaluated with %d folds", ErrDegenerateBatch, len(points), folds)
	}

	c.log.WithFields(logrus.Fields{
		"folds":   folds,
		"pending": len(pending),
		"cached":  len(points) - len(pending),
	}).Debug("evaluating batch")

	b := newBatch(len(pending))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := pool.New().WithMaxGoroutines(c.parallelism)

	go func() {
		for _, p := range pending {
			if b.stopped.IsSet() {
				break
			}

			workers.Go(func() { c.run(runCtx, b, folds, p) })
		}

		workers.Wait()
	}()

	select {
	case <-b.done:
	case <-ctx.Done():
		b.fail(ctx.Err())
	}

	return b.err()
}

func (c *Coordinator) run(ctx context.Context, b *batch, folds int, p GridPoint) {
	if b.stopped.IsSet() {
		return
	}

	c.dispatched.Add(1)

	perf, err := c.safeEvaluate(ctx, folds, p)
	if err != nil {
		err = fmt.Errorf("%w: point %s with %d folds: %w", ErrEvaluation, p, folds, err)

		c.log.WithError(err).WithField("point", p.String()).Error("evaluation failed")

		b.fail(err)

		return
	}

	c.cache.Put(folds, perf)

	c.log.WithFields(logrus.Fields{
		"point": p.String(),
		"folds": folds,
	}).Debug("point evaluated")

	// The caller may already have returned for a failed batch.
	if c.onComputed != nil && !b.stopped.IsSet() {
		c.onComputed(folds, perf)
	}

	b.succeed()
}

// safeEvaluate runs the evaluator, turning a panic into an error.
func (c *Coordinator) safeEvaluate(ctx context.Context, folds int, p GridPoint) (perf *Performance, err error) {
	defer func() {
		if r := recover(); r != nil {
			perf, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	out, err := c.evaluate(ctx, folds, p)
	if err != nil {
		return nil, err
	}

	if out == nil {
		return nil, errors.New("evaluator returned no performance")
	}

	stored := *out
	stored.Point = p
	stored.Folds = folds

	return &stored, nil
}

// Dispatched returns the number of evaluations started so far.
func (c *Coordinator) Dispatched() int64 { return c.dispatched.Load() }

// CacheHits returns the number of requested points found in the cache.
func (c *Coordinator) CacheHits() int64 { return c.hits.Load() }

// Cache returns the cache the coordinator fills.
func (c *Coordinator) Cache() *ResultCache { return c.cache }

func containsPoint(points []GridPoint, p GridPoint) bool {
	for _, q := range points {
		if q.Equal(p) {
			return true
		}
	}

	return false
}
