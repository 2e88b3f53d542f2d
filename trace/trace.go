// Package trace records every grid point a search computes into a SQLite
// database, so runs can be inspected or plotted after the fact.
//
// A Store implements gridsearch.Tracer:
//
//	store, err := trace.Open(ctx, "trace.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	config.Tracer = store
//
// NaN and infinite statistics are stored as NULL and read back as NaN.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"

	"github.com/thalesfsp/gridsearch"
	_ "modernc.org/sqlite"
)

//////
// Const, vars, types.
//////

// schema.sql creates the evaluations table, one row per computed point.
//
//go:embed schema.sql
var schemaSQL string

// Store is a SQLite backed trace sink.
//
// Thread safety:
//   - Trace may be called from concurrent evaluations. The store uses a
//     single connection, so writes are serialized by database/sql.
type Store struct {
	db *sql.DB
}

var _ gridsearch.Tracer = (*Store)(nil)

//////
// Factory.
//////

// Open opens, or creates, the trace database at path and makes sure the
// schema exists. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace database %q: %w", path, err)
	}

	// SQLite allows a single writer; an in-memory database also lives on one
	// connection only.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()

		return nil, fmt.Errorf("initializing trace schema: %w", err)
	}

	return &Store{db: db}, nil
}

//////
// Methods.
//////

// Trace implements gridsearch.Tracer.
func (s *Store) Trace(entry gridsearch.TraceEntry) error {
	var m gridsearch.Metrics
	if entry.Performance != nil {
		m = entry.Performance.Metrics
	}

	_, err := s.db.Exec(`
		INSERT INTO evaluations (
			run_id, folds, grid_x, grid_y, value_x, value_y,
			cc, rmse, rrse, mae, rae, combined, accuracy, kappa, weighted_auc,
			instances, metric_folds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RunID, entry.Folds, entry.Point.X, entry.Point.Y,
		nullable(entry.XValue), nullable(entry.YValue),
		nullable(m.CorrelationCoefficient), nullable(m.RMSE), nullable(m.RRSE),
		nullable(m.MAE), nullable(m.RAE), nullable(m.Combined),
		nullable(m.Accuracy), nullable(m.Kappa), nullable(m.WeightedAUC),
		m.Instances, m.Folds,
	)
	if err != nil {
		return fmt.Errorf("recording point %s of run %s: %w", entry.Point, entry.RunID, err)
	}

	return nil
}

// Entries returns the recorded points of a run in insertion order.
func (s *Store) Entries(ctx context.Context, runID string) ([]gridsearch.TraceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			folds, grid_x, grid_y, value_x, value_y,
			cc, rmse, rrse, mae, rae, combined, accuracy, kappa, weighted_auc,
			instances, metric_folds
		FROM evaluations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []gridsearch.TraceEntry

	for rows.Next() {
		var (
			folds                  int
			point                  gridsearch.GridPoint
			valueX, valueY         sql.NullFloat64
			cc, rmse, rrse, mae    sql.NullFloat64
			rae, combined, acc     sql.NullFloat64
			kappa, weightedAUC     sql.NullFloat64
			instances, metricFolds int
		)

		if err := rows.Scan(
			&folds, &point.X, &point.Y, &valueX, &valueY,
			&cc, &rmse, &rrse, &mae, &rae, &combined, &acc, &kappa, &weightedAUC,
			&instances, &metricFolds,
		); err != nil {
			return nil, fmt.Errorf("scanning run %s: %w", runID, err)
		}

		entries = append(entries, gridsearch.TraceEntry{
			RunID:  runID,
			Folds:  folds,
			Point:  point,
			XValue: orNaN(valueX),
			YValue: orNaN(valueY),
			Performance: &gridsearch.Performance{
				Point: point,
				Folds: folds,
				Metrics: gridsearch.Metrics{
					CorrelationCoefficient: orNaN(cc),
					RMSE:                   orNaN(rmse),
					RRSE:                   orNaN(rrse),
					MAE:                    orNaN(mae),
					RAE:                    orNaN(rae),
					Combined:               orNaN(combined),
					Accuracy:               orNaN(acc),
					Kappa:                  orNaN(kappa),
					WeightedAUC:            orNaN(weightedAUC),
					Instances:              instances,
					Folds:                  metricFolds,
				},
			},
		})
	}

	return entries, rows.Err()
}

// Runs returns the identifiers of the recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM evaluations GROUP BY run_id ORDER BY MIN(id)
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning runs: %w", err)
		}

		runs = append(runs, id)
	}

	return runs, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

//////
// Helper functions.
//////

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}
