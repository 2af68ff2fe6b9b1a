package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/rolling"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	rc, err := cfg.Rolling()
	require.NoError(t, err)
	assert.Equal(t, rolling.Config{Horizon: 120, Mode: rolling.ReestimateOnly, Workers: 1}, rc)
	assert.Equal(t, "Month", cfg.CSVOptions().DateColumn)
	assert.NoError(t, cfg.AutoARIMA().Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data:
  path: sunspots.csv
split:
  train_size: 100
  test_size: 40
evaluation:
  horizon: 12
  mode: recompute-model
  workers: 4
model:
  auto: false
  order:
    p: 1
    d: 0
    q: 1
    sp: 1
    m: 12
output:
  formats: [csv]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "sunspots.csv", cfg.Data.Path)
	assert.Equal(t, 100, cfg.Split.TrainSize)
	assert.Equal(t, 40, cfg.Split.TestSize)
	assert.False(t, cfg.Model.Auto)
	assert.Equal(t, forecast.Order{P: 1, Q: 1, SP: 1, M: 12}, cfg.Model.Order)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
	// Unset keys keep their defaults.
	assert.Equal(t, "Sunspots", cfg.Data.ValueColumn)

	mode, err := cfg.Mode()
	require.NoError(t, err)
	assert.Equal(t, rolling.RecomputeModel, mode)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ROLLFORECAST_EVALUATION_HORIZON", "24")
	t.Setenv("ROLLFORECAST_MODEL_CRITERION", "bic")
	t.Setenv("ROLLFORECAST_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Evaluation.Horizon)
	assert.Equal(t, "bic", cfg.Model.Criterion)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.Data.Path = "" }},
		{"zero train", func(c *Config) { c.Split.TrainSize = 0 }},
		{"negative test", func(c *Config) { c.Split.TestSize = -1 }},
		{"zero horizon", func(c *Config) { c.Evaluation.Horizon = 0 }},
		{"horizon over test", func(c *Config) { c.Split.TestSize = 10; c.Evaluation.Horizon = 11 }},
		{"bad mode", func(c *Config) { c.Evaluation.Mode = "sometimes" }},
		{"negative workers", func(c *Config) { c.Evaluation.Workers = -2 }},
		{"confidence one", func(c *Config) { c.Model.Confidence = 1 }},
		{"negative order", func(c *Config) { c.Model.Order.Q = -1 }},
		{"seasonal without period", func(c *Config) { c.Model.Order = forecast.Order{SD: 1} }},
		{"bad criterion", func(c *Config) { c.Model.Criterion = "hqic" }},
		{"seasonal search period", func(c *Config) { c.Model.Seasonal = true; c.Model.Period = 1 }},
		{"bad format", func(c *Config) { c.Output.Formats = []string{"xml"} }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Evaluation.Workers = 3
	cfg.Model.Order = forecast.Order{P: 1, D: 1, Q: 1, SQ: 1, M: 12}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, cfg))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
