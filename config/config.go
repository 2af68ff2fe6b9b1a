// Package config holds the run configuration for the rollforecast command:
// defaults, loading through viper and validation.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/rollforecast/autoarima"
	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/report"
	"github.com/sartorproj/rollforecast/rolling"
	"github.com/sartorproj/rollforecast/timeseries"
)

// EnvPrefix prefixes environment overrides, e.g. ROLLFORECAST_EVALUATION_HORIZON.
const EnvPrefix = "ROLLFORECAST"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config is the full run configuration.
type Config struct {
	Data       DataConfig       `mapstructure:"data" yaml:"data" json:"data"`
	Split      SplitConfig      `mapstructure:"split" yaml:"split" json:"split"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" yaml:"evaluation" json:"evaluation"`
	Model      ModelConfig      `mapstructure:"model" yaml:"model" json:"model"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// DataConfig locates the input series.
type DataConfig struct {
	Path        string `mapstructure:"path" yaml:"path" json:"path"`
	DateColumn  string `mapstructure:"date_column" yaml:"date_column" json:"date_column"`
	ValueColumn string `mapstructure:"value_column" yaml:"value_column" json:"value_column"`
	DateFormat  string `mapstructure:"date_format" yaml:"date_format" json:"date_format"`
	HasHeader   bool   `mapstructure:"has_header" yaml:"has_header" json:"has_header"`
}

// SplitConfig divides the series into training and test parts.
type SplitConfig struct {
	TrainSize int `mapstructure:"train_size" yaml:"train_size" json:"train_size"`
	// TestSize of 0 uses every observation after the training part.
	TestSize int `mapstructure:"test_size" yaml:"test_size" json:"test_size"`
}

// EvaluationConfig controls the rolling evaluation.
type EvaluationConfig struct {
	Horizon int    `mapstructure:"horizon" yaml:"horizon" json:"horizon"`
	Mode    string `mapstructure:"mode" yaml:"mode" json:"mode"`
	Workers int    `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// ModelConfig selects the initial model and the order search.
type ModelConfig struct {
	// Auto selects the initial order automatically. Otherwise Order is used.
	Auto       bool           `mapstructure:"auto" yaml:"auto" json:"auto"`
	Order      forecast.Order `mapstructure:"order" yaml:"order" json:"order"`
	Confidence float64        `mapstructure:"confidence" yaml:"confidence" json:"confidence"`

	Seasonal  bool   `mapstructure:"seasonal" yaml:"seasonal" json:"seasonal"`
	Period    int    `mapstructure:"period" yaml:"period" json:"period"`
	MaxP      int    `mapstructure:"max_p" yaml:"max_p" json:"max_p"`
	MaxD      int    `mapstructure:"max_d" yaml:"max_d" json:"max_d"`
	MaxQ      int    `mapstructure:"max_q" yaml:"max_q" json:"max_q"`
	MaxSP     int    `mapstructure:"max_sp" yaml:"max_sp" json:"max_sp"`
	MaxSD     int    `mapstructure:"max_sd" yaml:"max_sd" json:"max_sd"`
	MaxSQ     int    `mapstructure:"max_sq" yaml:"max_sq" json:"max_sq"`
	Criterion string `mapstructure:"criterion" yaml:"criterion" json:"criterion"`
	Stepwise  bool   `mapstructure:"stepwise" yaml:"stepwise" json:"stepwise"`
	Test      string `mapstructure:"test" yaml:"test" json:"test"`
}

// OutputConfig controls report files.
type OutputConfig struct {
	Dir     string   `mapstructure:"dir" yaml:"dir" json:"dir"`
	Formats []string `mapstructure:"formats" yaml:"formats" json:"formats"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level" json:"level"`
	Development bool   `mapstructure:"development" yaml:"development" json:"development"`
}

// MetricsConfig controls the Prometheus dump written after a run.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// Out is the text exposition file. Empty writes to stderr.
	Out string `mapstructure:"out" yaml:"out" json:"out"`
}

// Default returns the configuration for the monthly sunspot dataset: the
// first 1200 months train, the rest test, ten-year horizon.
func Default() *Config {
	auto := autoarima.DefaultConfig()
	opts := timeseries.DefaultCSVOptions()
	return &Config{
		Data: DataConfig{
			Path:        "monthly-sunspots.csv",
			DateColumn:  opts.DateColumn,
			ValueColumn: opts.ValueColumn,
			DateFormat:  opts.DateFormat,
			HasHeader:   opts.HasHeader,
		},
		Split: SplitConfig{TrainSize: 1200},
		Evaluation: EvaluationConfig{
			Horizon: 120,
			Mode:    rolling.ReestimateOnly.String(),
			Workers: 1,
		},
		Model: ModelConfig{
			Auto:       true,
			Order:      forecast.Order{P: 2, D: 0, Q: 1},
			Confidence: forecast.DefaultConfidence,
			Period:     12,
			MaxP:       auto.MaxP,
			MaxD:       auto.MaxD,
			MaxQ:       auto.MaxQ,
			MaxSP:      auto.MaxSP,
			MaxSD:      auto.MaxSD,
			MaxSQ:      auto.MaxSQ,
			Criterion:  auto.Criterion,
			Stepwise:   auto.Stepwise,
			Test:       auto.StationTest,
		},
		Output: OutputConfig{
			Dir:     "out",
			Formats: []string{report.FormatJSON, report.FormatCSV, report.FormatYAML},
		},
		Log: LogConfig{Level: "info"},
	}
}

// setDefaults registers every key so environment variables can override it.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("data.path", c.Data.Path)
	v.SetDefault("data.date_column", c.Data.DateColumn)
	v.SetDefault("data.value_column", c.Data.ValueColumn)
	v.SetDefault("data.date_format", c.Data.DateFormat)
	v.SetDefault("data.has_header", c.Data.HasHeader)

	v.SetDefault("split.train_size", c.Split.TrainSize)
	v.SetDefault("split.test_size", c.Split.TestSize)

	v.SetDefault("evaluation.horizon", c.Evaluation.Horizon)
	v.SetDefault("evaluation.mode", c.Evaluation.Mode)
	v.SetDefault("evaluation.workers", c.Evaluation.Workers)

	v.SetDefault("model.auto", c.Model.Auto)
	v.SetDefault("model.order.p", c.Model.Order.P)
	v.SetDefault("model.order.d", c.Model.Order.D)
	v.SetDefault("model.order.q", c.Model.Order.Q)
	v.SetDefault("model.order.sp", c.Model.Order.SP)
	v.SetDefault("model.order.sd", c.Model.Order.SD)
	v.SetDefault("model.order.sq", c.Model.Order.SQ)
	v.SetDefault("model.order.m", c.Model.Order.M)
	v.SetDefault("model.confidence", c.Model.Confidence)
	v.SetDefault("model.seasonal", c.Model.Seasonal)
	v.SetDefault("model.period", c.Model.Period)
	v.SetDefault("model.max_p", c.Model.MaxP)
	v.SetDefault("model.max_d", c.Model.MaxD)
	v.SetDefault("model.max_q", c.Model.MaxQ)
	v.SetDefault("model.max_sp", c.Model.MaxSP)
	v.SetDefault("model.max_sd", c.Model.MaxSD)
	v.SetDefault("model.max_sq", c.Model.MaxSQ)
	v.SetDefault("model.criterion", c.Model.Criterion)
	v.SetDefault("model.stepwise", c.Model.Stepwise)
	v.SetDefault("model.test", c.Model.Test)

	v.SetDefault("output.dir", c.Output.Dir)
	v.SetDefault("output.formats", c.Output.Formats)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.development", c.Log.Development)

	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
	v.SetDefault("metrics.out", c.Metrics.Out)
}

// Load builds the configuration from defaults, the config file at path
// (if not empty), ROLLFORECAST_* environment variables and any flags the
// caller bound on v, in increasing order of precedence.
func Load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate performs field checks that do not need the data.
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return invalid("data path cannot be empty")
	}

	if c.Split.TrainSize <= 0 {
		return invalid("train size must be greater than 0, got %d", c.Split.TrainSize)
	}
	if c.Split.TestSize < 0 {
		return invalid("test size cannot be negative")
	}

	if c.Evaluation.Horizon < 1 {
		return invalid("horizon must be at least 1, got %d", c.Evaluation.Horizon)
	}
	if c.Split.TestSize > 0 && c.Evaluation.Horizon > c.Split.TestSize {
		return invalid("horizon %d exceeds test size %d", c.Evaluation.Horizon, c.Split.TestSize)
	}
	if _, err := rolling.ParseMode(c.Evaluation.Mode); err != nil {
		return invalid("evaluation mode: %v", err)
	}
	if c.Evaluation.Workers < 0 {
		return invalid("workers cannot be negative")
	}

	if c.Model.Confidence <= 0 || c.Model.Confidence >= 1 {
		return invalid("confidence must be in (0, 1), got %g", c.Model.Confidence)
	}
	o := c.Model.Order
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SP < 0 || o.SD < 0 || o.SQ < 0 {
		return invalid("model order cannot be negative: %s", o)
	}
	if o.IsSeasonal() && o.M < 2 {
		return invalid("seasonal order needs a period of at least 2, got %d", o.M)
	}
	if err := c.AutoARIMA().Validate(); err != nil {
		return invalid("model search: %v", err)
	}

	for _, f := range c.Output.Formats {
		switch f {
		case report.FormatJSON, report.FormatCSV, report.FormatYAML:
		default:
			return invalid("unknown output format %q", f)
		}
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log level: %v", err)
	}
	return nil
}

// Mode returns the parsed evaluation mode.
func (c *Config) Mode() (rolling.Mode, error) {
	return rolling.ParseMode(c.Evaluation.Mode)
}

// Rolling returns the evaluator configuration.
func (c *Config) Rolling() (rolling.Config, error) {
	mode, err := c.Mode()
	if err != nil {
		return rolling.Config{}, err
	}
	return rolling.Config{
		Horizon: c.Evaluation.Horizon,
		Mode:    mode,
		Workers: c.Evaluation.Workers,
	}, nil
}

// AutoARIMA returns the order-search configuration.
func (c *Config) AutoARIMA() *autoarima.Config {
	return &autoarima.Config{
		MaxP:        c.Model.MaxP,
		MaxD:        c.Model.MaxD,
		MaxQ:        c.Model.MaxQ,
		MaxSP:       c.Model.MaxSP,
		MaxSD:       c.Model.MaxSD,
		MaxSQ:       c.Model.MaxSQ,
		Seasonal:    c.Model.Seasonal,
		SeasonalM:   c.Model.Period,
		Stepwise:    c.Model.Stepwise,
		Criterion:   c.Model.Criterion,
		StationTest: c.Model.Test,
	}
}

// CSVOptions returns the loader options for the input file.
func (c *Config) CSVOptions() *timeseries.CSVOptions {
	opts := timeseries.DefaultCSVOptions()
	opts.DateColumn = c.Data.DateColumn
	opts.ValueColumn = c.Data.ValueColumn
	opts.DateFormat = c.Data.DateFormat
	opts.HasHeader = c.Data.HasHeader
	return opts
}

// WriteYAML renders cfg as YAML.
func WriteYAML(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
