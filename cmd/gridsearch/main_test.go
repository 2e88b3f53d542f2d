package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const searchYAML = `
classifier: linear
filter: pca
criterion: RMSE
class: price
parallelism: 2
x:
  property: filter.numComponents
  min: 1
  max: 3
  step: 1
  expression: I
y:
  property: classifier.ridge
  min: -3
  max: -1
  step: 1
  base: 10
  expression: pow(BASE,I)
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func writeFixtures(t *testing.T) (configPath, dataPath string) {
	t.Helper()

	dir := t.TempDir()

	var csv strings.Builder

	csv.WriteString("a,b,c,price\n")

	for i := 0; i < 30; i++ {
		a := float64(i%5) - 2
		b := math.Cos(float64(i)) * 3
		c := float64((i*7)%9) / 3

		fmt.Fprintf(&csv, "%g,%g,%g,%g\n", a, b, c, 1.5*a-b+2*c+0.01*math.Sin(float64(i)))
	}

	configPath = filepath.Join(dir, "search.yaml")
	dataPath = filepath.Join(dir, "train.csv")

	require.NoError(t, os.WriteFile(configPath, []byte(searchYAML), 0o600))
	require.NoError(t, os.WriteFile(dataPath, []byte(csv.String()), 0o600))

	return configPath, dataPath
}

func TestRunPrintsReportAndTraces(t *testing.T) {
	configPath, dataPath := writeFixtures(t)
	dbPath := filepath.Join(t.TempDir(), "trace.db")

	out, err := execute(t, "run", "--config", configPath, "--data", dataPath, "--trace", dbPath, "--log-level", "error")
	require.NoError(t, err)

	var r report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))

	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, "RMSE", r.Criterion)
	assert.Equal(t, "filter.numComponents", r.XProperty)
	assert.Equal(t, "classifier.ridge", r.YProperty)
	assert.GreaterOrEqual(t, r.XValue, 1.0)
	assert.LessOrEqual(t, r.XValue, 3.0)
	assert.NotEmpty(t, r.StopReason)
	assert.Positive(t, r.Evaluations)

	runs, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, r.RunID+"\n", runs)

	entries, err := execute(t, "trace", "--db", dbPath, r.RunID)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(entries), "\n"), int(r.Evaluations))
}

func TestRunRejectsBadSettings(t *testing.T) {
	configPath, dataPath := writeFixtures(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no data", args: []string{"run", "--config", configPath}, want: "no dataset"},
		{name: "unknown classifier", args: []string{"run", "--config", configPath, "--data", dataPath, "--classifier", "tree"}, want: "unknown classifier"},
		{name: "unknown filter", args: []string{"run", "--config", configPath, "--data", dataPath, "--filter", "fft"}, want: "unknown filter"},
		{name: "unknown criterion", args: []string{"run", "--config", configPath, "--data", dataPath, "--criterion", "F1"}, want: "unknown criterion"},
		{name: "bad log level", args: []string{"run", "--config", configPath, "--data", dataPath, "--log-level", "loud"}, want: "invalid log level"},
		{name: "missing class column", args: []string{"run", "--config", configPath, "--data", dataPath, "--class", "cost"}, want: "cost"},
		{name: "missing config file", args: []string{"run", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, want: "failed to read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigPrintsDefaults(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)

	var got settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))

	if diff := cmp.Diff(defaultSettings(), got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigLayersFileAndEnvironment(t *testing.T) {
	configPath, _ := writeFixtures(t)

	t.Setenv("GRIDSEARCH_CRITERION", "MAE")
	t.Setenv("GRIDSEARCH_Y_MAX", "2")

	out, err := execute(t, "config", "--config", configPath)
	require.NoError(t, err)

	var got settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))

	assert.Equal(t, "MAE", got.Criterion, "environment overrides the file")
	assert.Equal(t, 2.0, got.Y.Max)
	assert.Equal(t, -3.0, got.Y.Min, "file overrides defaults")
	assert.Equal(t, "price", got.Class)
	assert.Equal(t, 10.0, got.X.Base, "keys absent from the file keep their default")
	assert.Equal(t, 10, got.RefineFolds)
}
