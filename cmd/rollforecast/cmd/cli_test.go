package cmd

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/rollforecast/report"
)

func executeCommand(args ...string) (string, error) {
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeFixture writes a monthly CSV with a yearly cycle and a fixed-order
// model config, and returns the config path.
func writeFixture(t *testing.T, dir string) string {
	t.Helper()

	var csv strings.Builder
	csv.WriteString("Month,Sunspots\n")
	for i := 0; i < 72; i++ {
		v := 50 + 20*math.Sin(2*math.Pi*float64(i)/12) + float64(i%5) - 2 + 0.2*float64(i)
		fmt.Fprintf(&csv, "%d-%02d,%.3f\n", 1900+i/12, i%12+1, v)
	}
	data := filepath.Join(dir, "series.csv")
	require.NoError(t, os.WriteFile(data, []byte(csv.String()), 0o644))

	cfg := fmt.Sprintf(`data:
  path: %s
split:
  train_size: 60
evaluation:
  horizon: 3
  mode: reestimate_only
model:
  auto: false
  order: {p: 1, d: 1, q: 0}
log:
  level: error
output:
  dir: %s
`, data, filepath.Join(dir, "out"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestConfigInit(t *testing.T) {
	output, err := executeCommand("config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "horizon: 120")
	assert.Contains(t, output, "mode: reestimate_only")

	path := filepath.Join(t.TempDir(), "rollforecast.yaml")
	output, err = executeCommand("config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote "+path)

	_, err = executeCommand("config", "init", path)
	assert.Error(t, err)
	_, err = executeCommand("config", "init", path, "--force")
	assert.NoError(t, err)
}

func TestConfigViewFlagsOverrideFile(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	output, err := executeCommand("config", "view", "--config", path, "--train-size", "48", "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, output, "train_size: 48")
	assert.Contains(t, output, "level: warn")
	assert.Contains(t, output, "horizon: 3")
}

func TestEvaluate(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir)
	metrics := filepath.Join(dir, "metrics.prom")

	output, err := executeCommand("evaluate", "--config", path, "--workers", "2", "--metrics-out", metrics)
	require.NoError(t, err)
	assert.Contains(t, output, "10 origins x 3 steps")
	assert.Contains(t, output, "ARIMA(1,1,0)")
	assert.Contains(t, output, "COVERAGE")

	for _, name := range []string{report.JSONFile, report.CSVFile, report.SummaryFile} {
		_, err := os.Stat(filepath.Join(dir, "out", name))
		assert.NoError(t, err, name)
	}

	dump, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(dump), `rollforecast_refits_total{mode="reestimate_only"} 10`)
	assert.Contains(t, string(dump), "rollforecast_origins 10")
}

func TestEvaluateHorizonTooLong(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	_, err := executeCommand("evaluate", "--config", path, "--horizon", "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horizon 13 exceeds test length 12")
}

func TestFit(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	output, err := executeCommand("fit", "--config", path, "--full")
	require.NoError(t, err)
	assert.Contains(t, output, "ARIMA(1,1,0)")
	assert.Regexp(t, `Observations:\s+72`, output)
	assert.Contains(t, output, "AIC")
	assert.Contains(t, output, "Ljung-Box")
}
