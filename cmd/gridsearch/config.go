package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/thalesfsp/gridsearch"
	"github.com/thalesfsp/gridsearch/dataset"
	"github.com/thalesfsp/gridsearch/learner"
)

//////
// Const, vars, types.
//////

// envPrefix prefixes the environment variables overriding settings, e.g.
// GRIDSEARCH_CRITERION or GRIDSEARCH_X_MAX.
const envPrefix = "GRIDSEARCH"

// settings is the file, environment and flag facing configuration of a run.
type settings struct {
	Data              string          `mapstructure:"data" yaml:"data"`
	Format            string          `mapstructure:"format" yaml:"format"`
	Class             string          `mapstructure:"class" yaml:"class"`
	Nominal           bool            `mapstructure:"nominal" yaml:"nominal"`
	Classifier        string          `mapstructure:"classifier" yaml:"classifier"`
	Filter            string          `mapstructure:"filter" yaml:"filter"`
	Criterion         string          `mapstructure:"criterion" yaml:"criterion"`
	X                 gridsearch.Axis `mapstructure:"x" yaml:"x"`
	Y                 gridsearch.Axis `mapstructure:"y" yaml:"y"`
	Parallelism       int             `mapstructure:"parallelism" yaml:"parallelism"`
	GridIsExtendable  bool            `mapstructure:"grid_is_extendable" yaml:"grid_is_extendable"`
	MaxGridExtensions int             `mapstructure:"max_grid_extensions" yaml:"max_grid_extensions"`
	SampleSizePercent float64         `mapstructure:"sample_size_percent" yaml:"sample_size_percent"`
	Seed              int64           `mapstructure:"seed" yaml:"seed"`
	CoarseFolds       int             `mapstructure:"coarse_folds" yaml:"coarse_folds"`
	RefineFolds       int             `mapstructure:"refine_folds" yaml:"refine_folds"`
	Trace             string          `mapstructure:"trace" yaml:"trace"`
	LogLevel          string          `mapstructure:"log_level" yaml:"log_level"`
}

// classifiers and filters map setting names to template constructors.
var (
	classifiers = map[string]func() learner.Classifier{
		"linear": func() learner.Classifier { return learner.NewLinearRegression() },
		"gp":     func() learner.Classifier { return learner.NewGaussianProcess() },
		"knn":    func() learner.Classifier { return learner.NewKNearestNeighbours() },
	}

	filters = map[string]func() learner.Filter{
		"none":            func() learner.Filter { return learner.NewAllFilter() },
		"pca":             func() learner.Filter { return learner.NewPCAFilter() },
		"standardize":     func() learner.Filter { return learner.NewStandardizeFilter() },
		"standardize+pca": newStandardizedPCA,
	}
)

// newStandardizedPCA chains standardization and PCA. Its components are
// addressed as "filter.0.*" and "filter.1.*".
func newStandardizedPCA() learner.Filter {
	return learner.NewMultiFilter(learner.NewStandardizeFilter(), learner.NewPCAFilter())
}

//////
// Factory.
//////

// defaultSettings mirrors gridsearch.DefaultConfig.
func defaultSettings() settings {
	d := gridsearch.DefaultConfig()

	return settings{
		Format:            "",
		Class:             "class",
		Classifier:        "linear",
		Filter:            "pca",
		Criterion:         d.Criterion.String(),
		X:                 d.X,
		Y:                 d.Y,
		Parallelism:       d.Parallelism,
		GridIsExtendable:  d.GridIsExtendable,
		MaxGridExtensions: d.MaxGridExtensions,
		SampleSizePercent: d.SampleSizePercent,
		Seed:              d.Seed,
		CoarseFolds:       d.CoarseFolds,
		RefineFolds:       d.RefineFolds,
		LogLevel:          "info",
	}
}

// newViper returns a viper instance carrying the defaults and reading
// GRIDSEARCH_* environment variables.
func newViper() *viper.Viper {
	v := viper.New()

	d := defaultSettings()

	v.SetDefault("data", d.Data)
	v.SetDefault("format", d.Format)
	v.SetDefault("class", d.Class)
	v.SetDefault("nominal", d.Nominal)
	v.SetDefault("classifier", d.Classifier)
	v.SetDefault("filter", d.Filter)
	v.SetDefault("criterion", d.Criterion)
	setAxisDefaults(v, "x", d.X)
	setAxisDefaults(v, "y", d.Y)
	v.SetDefault("parallelism", d.Parallelism)
	v.SetDefault("grid_is_extendable", d.GridIsExtendable)
	v.SetDefault("max_grid_extensions", d.MaxGridExtensions)
	v.SetDefault("sample_size_percent", d.SampleSizePercent)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("coarse_folds", d.CoarseFolds)
	v.SetDefault("refine_folds", d.RefineFolds)
	v.SetDefault("trace", d.Trace)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func setAxisDefaults(v *viper.Viper, key string, a gridsearch.Axis) {
	v.SetDefault(key+".property", a.Property)
	v.SetDefault(key+".min", a.Min)
	v.SetDefault(key+".max", a.Max)
	v.SetDefault(key+".step", a.Step)
	v.SetDefault(key+".base", a.Base)
	v.SetDefault(key+".expression", a.Expression)
	v.SetDefault(key+".label", a.Label)
}

//////
// Helper functions.
//////

// loadSettings reads the optional YAML file at path and resolves the final
// settings: flags over environment over file over defaults.
func loadSettings(v *viper.Viper, path string) (settings, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return s, nil
}

// newLogger builds the CLI logger.
func newLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger, nil
}

// searchConfig turns settings into a search configuration.
func (s settings) searchConfig() (gridsearch.Config, error) {
	newClassifier, ok := classifiers[strings.ToLower(s.Classifier)]
	if !ok {
		return gridsearch.Config{}, fmt.Errorf("unknown classifier %q, expected one of %s", s.Classifier, names(classifiers))
	}

	newFilter, ok := filters[strings.ToLower(s.Filter)]
	if !ok {
		return gridsearch.Config{}, fmt.Errorf("unknown filter %q, expected one of %s", s.Filter, names(filters))
	}

	criterion, err := gridsearch.ParseCriterion(s.Criterion)
	if err != nil {
		return gridsearch.Config{}, err
	}

	config := gridsearch.DefaultConfig()
	config.X = s.X
	config.Y = s.Y
	config.Classifier = newClassifier()
	config.Filter = newFilter()
	config.Criterion = criterion
	config.Parallelism = s.Parallelism
	config.GridIsExtendable = s.GridIsExtendable
	config.MaxGridExtensions = s.MaxGridExtensions
	config.SampleSizePercent = s.SampleSizePercent
	config.Seed = s.Seed
	config.CoarseFolds = s.CoarseFolds
	config.RefineFolds = s.RefineFolds

	return config, nil
}

// loadData reads the dataset named by the settings. The format defaults to
// the file extension.
func (s settings) loadData() (*dataset.Dataset, error) {
	if s.Data == "" {
		return nil, errors.New("no dataset given, set --data or data in the config file")
	}

	raw, err := os.ReadFile(s.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	classType := dataset.Numeric
	if s.Nominal {
		classType = dataset.Nominal
	}

	format := strings.ToLower(s.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Data)), ".")
	}

	switch format {
	case "json":
		return dataset.LoadJSON(raw, s.Class, classType)
	case "csv", "":
		return dataset.LoadCSV(bytes.NewReader(raw), s.Class, classType)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
}

func names[T any](m map[string]T) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return strings.Join(keys, ", ")
}
