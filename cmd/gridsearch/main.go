// Command gridsearch tunes two properties of a filter and classifier pair on
// a CSV or JSON dataset.
//
// Usage:
//
//	gridsearch run --config search.yaml --data train.csv --class price
//	gridsearch config > search.yaml
//	gridsearch trace --db trace.db [run-id]
//
// Settings come from, in increasing precedence: built-in defaults, the YAML
// file given with --config, GRIDSEARCH_* environment variables (nested keys
// use underscores, e.g. GRIDSEARCH_X_MAX) and command-line flags.
package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thalesfsp/gridsearch"
	"github.com/thalesfsp/gridsearch/trace"
	"gopkg.in/yaml.v3"
)

// report is what the run command prints.
type report struct {
	RunID       string  `yaml:"run_id"`
	BestX       float64 `yaml:"best_x"`
	BestY       float64 `yaml:"best_y"`
	XProperty   string  `yaml:"x_property"`
	XValue      float64 `yaml:"x_value"`
	YProperty   string  `yaml:"y_property"`
	YValue      float64 `yaml:"y_value"`
	Criterion   string  `yaml:"criterion"`
	Score       float64 `yaml:"score"`
	StopReason  string  `yaml:"stop_reason"`
	Extensions  int     `yaml:"extensions"`
	Iterations  int     `yaml:"iterations"`
	Evaluations int64   `yaml:"evaluations"`
	CacheHits   int64   `yaml:"cache_hits"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a fresh viper instance.
func newRootCmd() *cobra.Command {
	v := newViper()

	var configPath string

	root := &cobra.Command{
		Use:          "gridsearch",
		Short:        "Two-dimensional grid search over learner settings",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newRunCmd(v, &configPath),
		newConfigCmd(v, &configPath),
		newTraceCmd(),
	)

	return root
}

func newRunCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search the grid and print the best point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v, *configPath)
			if err != nil {
				return err
			}

			return run(cmd, s)
		},
	}

	flags := cmd.Flags()
	flags.String("data", "", "Dataset file, CSV or JSON")
	flags.String("format", "", "Dataset format: csv or json (default: file extension)")
	flags.String("class", "", "Name of the class column")
	flags.Bool("nominal", false, "Treat the class as nominal")
	flags.String("classifier", "", "Classifier: gp, knn, linear")
	flags.String("filter", "", "Filter: none, pca, standardize, standardize+pca")
	flags.String("criterion", "", "Criterion: CC, RMSE, RRSE, MAE, RAE, COMB, ACC, KAP, WAUC")
	flags.Int("parallelism", 0, "Number of concurrent evaluations")
	flags.Bool("extendable", false, "Allow the grid to grow when the best point is on its border")
	flags.Int64("seed", 0, "Seed of the sub-sample and the fold shuffles")
	flags.String("trace", "", "SQLite database recording every evaluated point")

	for key, flag := range map[string]string{
		"data":               "data",
		"format":             "format",
		"class":              "class",
		"nominal":            "nominal",
		"classifier":         "classifier",
		"filter":             "filter",
		"criterion":          "criterion",
		"parallelism":        "parallelism",
		"grid_is_extendable": "extendable",
		"seed":               "seed",
		"trace":              "trace",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func run(cmd *cobra.Command, s settings) error {
	logger, err := newLogger(s.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	config, err := s.searchConfig()
	if err != nil {
		return err
	}

	data, err := s.loadData()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.Trace != "" {
		store, err := trace.Open(ctx, s.Trace)
		if err != nil {
			return err
		}
		defer store.Close()

		config.Tracer = store
	}

	progress := make(chan gridsearch.ProgressUpdate, 16)
	done := make(chan struct{})

	go logProgress(logger, progress, done)

	config.Logger = logger
	config.ProgressChan = progress

	searcher, err := gridsearch.New(config)
	if err != nil {
		close(progress)
		<-done

		return err
	}

	result, err := searcher.Search(ctx, data)

	close(progress)
	<-done

	if err != nil {
		return err
	}

	out, err := yaml.Marshal(newReport(config, result))
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(out)

	return err
}

func logProgress(logger logrus.FieldLogger, updates <-chan gridsearch.ProgressUpdate, done chan<- struct{}) {
	defer close(done)

	for u := range updates {
		logger.WithFields(logrus.Fields{
			"run_id":     u.RunID,
			"iteration":  u.Iteration,
			"extensions": u.Extensions,
			"best":       u.CurrentBest.String(),
		}).Debugf("phase %s", u.Phase)
	}
}

func newReport(config gridsearch.Config, r *gridsearch.Result) report {
	score := math.NaN()
	if r.Performance != nil {
		score = r.Performance.Score(config.Criterion)
	}

	return report{
		RunID:       r.RunID,
		BestX:       r.Best.X,
		BestY:       r.Best.Y,
		XProperty:   config.X.Property,
		XValue:      r.XValue,
		YProperty:   config.Y.Property,
		YValue:      r.YValue,
		Criterion:   config.Criterion.String(),
		Score:       score,
		StopReason:  string(r.StopReason),
		Extensions:  r.Extensions,
		Iterations:  r.Iterations,
		Evaluations: r.Evaluations,
		CacheHits:   r.CacheHits,
	}
}

func newConfigCmd(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v, *configPath)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(s)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}

func newTraceCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "List traced runs, or the points evaluated by one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := trace.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}

				for _, id := range runs {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}

				return nil
			}

			entries, err := store.Entries(ctx, args[0])
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%g\t%g\t%g\n",
					e.Folds, e.Point, e.XValue, e.YValue, e.Performance.Metrics.RMSE)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "trace.db", "Trace database")

	return cmd
}
