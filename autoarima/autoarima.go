// Package autoarima implements automatic ARIMA model selection.
package autoarima

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sartorproj/rollforecast/arima"
	"github.com/sartorproj/rollforecast/sarima"
	"github.com/sartorproj/rollforecast/stats"
	"github.com/sartorproj/rollforecast/timeseries"
)

var (
	// ErrNoModel is returned when no candidate order could be fitted.
	ErrNoModel = errors.New("no candidate model could be fitted")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid auto arima configuration")
)

// Information criteria accepted in Config.Criterion.
const (
	CriterionAIC  = "aic"
	CriterionAICc = "aicc"
	CriterionBIC  = "bic"
)

// Config holds configuration for auto ARIMA search.
type Config struct {
	MaxP        int    // maximum AR order (default 5)
	MaxD        int    // maximum differencing order (default 2)
	MaxQ        int    // maximum MA order (default 5)
	MaxSP       int    // maximum seasonal AR order (default 2)
	MaxSD       int    // maximum seasonal differencing order (default 1)
	MaxSQ       int    // maximum seasonal MA order (default 2)
	Seasonal    bool   // consider seasonal models
	SeasonalM   int    // seasonal period, required when Seasonal is set
	Stepwise    bool   // stepwise search instead of the full grid
	Criterion   string // "aic", "aicc" or "bic"
	StationTest string // "kpss", "adf" or "pp"

	// Logger receives one debug entry per candidate. Nil disables tracing.
	Logger *zap.Logger
}

// DefaultConfig returns the default auto ARIMA configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Stepwise:    true,
		Criterion:   CriterionAIC,
		StationTest: stats.UnitRootKPSS,
	}
}

// Validate checks the search bounds and option names.
func (c *Config) Validate() error {
	if c.MaxP < 0 || c.MaxD < 0 || c.MaxQ < 0 || c.MaxSP < 0 || c.MaxSD < 0 || c.MaxSQ < 0 {
		return fmt.Errorf("%w: order bounds must be non-negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Criterion) {
	case "", CriterionAIC, CriterionAICc, CriterionBIC:
	default:
		return fmt.Errorf("%w: unknown criterion %q", ErrInvalidConfig, c.Criterion)
	}
	switch strings.ToLower(c.StationTest) {
	case "", stats.UnitRootKPSS, stats.UnitRootADF, stats.UnitRootPP:
	default:
		return fmt.Errorf("%w: unknown stationarity test %q", ErrInvalidConfig, c.StationTest)
	}
	if c.Seasonal && c.SeasonalM < 2 {
		return fmt.Errorf("%w: seasonal period must be at least 2, got %d", ErrInvalidConfig, c.SeasonalM)
	}
	return nil
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Result represents the result of auto ARIMA model selection.
type Result struct {
	// Model is set for non-seasonal selections.
	Model *arima.Model
	// SeasonalModel is set for seasonal selections.
	SeasonalModel *sarima.Model

	P  int
	D  int
	Q  int
	SP int
	SD int
	SQ int
	M  int

	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	Criterion float64

	// Orders suggested by the last significant ACF/PACF lags of the
	// differenced series.
	SuggestedP  int
	SuggestedQ  int
	SuggestedSP int
	SuggestedSQ int

	ModelsEvaluated int
	IsSeasonal      bool
}

// Order returns the selected order. Non-seasonal selections leave the
// seasonal fields zero.
func (r *Result) Order() sarima.Order {
	return sarima.Order{P: r.P, D: r.D, Q: r.Q, SP: r.SP, SD: r.SD, SQ: r.SQ, M: r.M}
}

// AutoARIMA selects the ARIMA or SARIMA order that minimises the configured
// information criterion. Seasonal differencing is chosen first from the
// seasonal strength, then regular differencing from the unit-root test on the
// seasonally differenced series.
func AutoARIMA(series *timeseries.Series, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seasonal := config.Seasonal && config.SeasonalM > 1

	sd := 0
	stationary := series
	if seasonal {
		sd = stats.NSDiffs(series, config.SeasonalM, config.MaxSD)
		for i := 0; i < sd; i++ {
			stationary = stationary.SeasonalDiff(config.SeasonalM)
		}
	}
	d := stats.NDiffs(stationary, config.MaxD, strings.ToLower(config.StationTest))
	stationary = stationary.DiffN(d)

	s := &search{
		series:   series,
		config:   config,
		log:      config.logger(),
		d:        d,
		sd:       sd,
		seasonal: seasonal,
		tried:    make(map[trial]bool),
	}
	s.suggest(stationary)

	var best *Result
	if config.Stepwise {
		best = s.stepwise()
	} else {
		best = s.grid()
	}
	if best == nil {
		return nil, fmt.Errorf("autoarima: d=%d D=%d after %d candidates: %w", d, sd, s.evaluated, ErrNoModel)
	}

	best.ModelsEvaluated = s.evaluated
	best.SuggestedP, best.SuggestedQ = s.suggested.p, s.suggested.q
	best.SuggestedSP, best.SuggestedSQ = s.suggested.sp, s.suggested.sq

	s.log.Debug("selected model",
		zap.Stringer("order", best.Order()),
		zap.Float64("criterion", best.Criterion),
		zap.Int("evaluated", s.evaluated))
	return best, nil
}

type trial struct {
	p, q, sp, sq int
}

type search struct {
	series    *timeseries.Series
	config    *Config
	log       *zap.Logger
	d, sd     int
	seasonal  bool
	suggested trial
	tried     map[trial]bool
	evaluated int
}

// suggest derives starting orders from the ACF and PACF of the stationary
// series.
func (s *search) suggest(stationary *timeseries.Series) {
	maxLag := max(s.config.MaxP, s.config.MaxQ)
	if s.seasonal {
		maxLag = max(maxLag, s.config.SeasonalM*max(s.config.MaxSP, s.config.MaxSQ))
	}
	if maxLag < 1 || stationary.Len() <= maxLag+1 {
		return
	}

	acf := stats.ACF(stationary, maxLag)
	pacf := stats.PACF(stationary, maxLag)
	if acf == nil || pacf == nil {
		return
	}
	bound := stats.ConfidenceBound(stationary.Len())

	s.suggested.p = stats.LastSignificantLag(pacf, bound, s.config.MaxP)
	s.suggested.q = stats.LastSignificantLag(acf, bound, s.config.MaxQ)
	if s.seasonal {
		s.suggested.sp = seasonalLags(pacf, bound, s.config.SeasonalM, s.config.MaxSP)
		s.suggested.sq = seasonalLags(acf, bound, s.config.SeasonalM, s.config.MaxSQ)
	}
}

// seasonalLags counts the leading seasonal multiples k*m (k <= maxK) that are
// significant.
func seasonalLags(values []float64, bound float64, m, maxK int) int {
	k := 0
	for k < maxK && (k+1)*m < len(values) && math.Abs(values[(k+1)*m]) > bound {
		k++
	}
	return k
}

func (s *search) inBounds(c trial) bool {
	cfg := s.config
	if c.p < 0 || c.q < 0 || c.sp < 0 || c.sq < 0 {
		return false
	}
	if c.p > cfg.MaxP || c.q > cfg.MaxQ {
		return false
	}
	if !s.seasonal {
		return c.sp == 0 && c.sq == 0
	}
	return c.sp <= cfg.MaxSP && c.sq <= cfg.MaxSQ
}

// evaluate fits one candidate. It returns nil for out-of-bounds or
// already-tried specs and for fits that fail.
func (s *search) evaluate(c trial) *Result {
	if !s.inBounds(c) || s.tried[c] {
		return nil
	}
	s.tried[c] = true

	var r *Result
	var err error
	if s.seasonal {
		r, err = s.fitSeasonal(c)
	} else {
		r, err = s.fitNonSeasonal(c)
	}
	if err != nil {
		s.log.Debug("candidate failed",
			zap.Int("p", c.p), zap.Int("q", c.q), zap.Int("P", c.sp), zap.Int("Q", c.sq),
			zap.Error(err))
		return nil
	}

	s.evaluated++
	r.Criterion = s.criterion(r)
	s.log.Debug("candidate",
		zap.Stringer("order", r.Order()),
		zap.Float64("criterion", r.Criterion))
	return r
}

func (s *search) fitNonSeasonal(c trial) (*Result, error) {
	model := arima.New(c.p, s.d, c.q)
	if err := model.Fit(s.series); err != nil {
		return nil, err
	}
	return &Result{
		Model:  model,
		P:      c.p,
		D:      s.d,
		Q:      c.q,
		AIC:    model.AIC,
		AICc:   model.AICc,
		BIC:    model.BIC,
		LogLik: model.LogLik,
	}, nil
}

func (s *search) fitSeasonal(c trial) (*Result, error) {
	m := s.config.SeasonalM
	model := sarima.New(c.p, s.d, c.q, c.sp, s.sd, c.sq, m)
	if err := model.Fit(s.series); err != nil {
		return nil, err
	}
	return &Result{
		SeasonalModel: model,
		P:             c.p,
		D:             s.d,
		Q:             c.q,
		SP:            c.sp,
		SD:            s.sd,
		SQ:            c.sq,
		M:             m,
		AIC:           model.AIC,
		AICc:          model.AICc,
		BIC:           model.BIC,
		LogLik:        model.LogLik,
		IsSeasonal:    true,
	}, nil
}

func (s *search) criterion(r *Result) float64 {
	switch strings.ToLower(s.config.Criterion) {
	case CriterionBIC:
		return r.BIC
	case CriterionAICc:
		return r.AICc
	default:
		return r.AIC
	}
}

// better reports whether candidate beats best. Ties keep the earlier model.
func better(candidate, best *Result) bool {
	if candidate == nil || math.IsNaN(candidate.Criterion) {
		return false
	}
	return best == nil || candidate.Criterion < best.Criterion
}

// grid fits every order within the bounds.
func (s *search) grid() *Result {
	maxSP, maxSQ := 0, 0
	if s.seasonal {
		maxSP, maxSQ = s.config.MaxSP, s.config.MaxSQ
	}

	var best *Result
	for p := 0; p <= s.config.MaxP; p++ {
		for q := 0; q <= s.config.MaxQ; q++ {
			for sp := 0; sp <= maxSP; sp++ {
				for sq := 0; sq <= maxSQ; sq++ {
					if r := s.evaluate(trial{p, q, sp, sq}); better(r, best) {
						best = r
					}
				}
			}
		}
	}
	return best
}

// stepwise starts from a few simple orders plus the ACF/PACF suggestion and
// moves to the best neighbour until no neighbour improves.
func (s *search) stepwise() *Result {
	starts := []trial{{0, 0, 0, 0}, {1, 0, 0, 0}, {0, 1, 0, 0}, {1, 1, 0, 0}, {2, 2, 0, 0}}
	if s.seasonal {
		starts = []trial{{0, 0, 0, 0}, {1, 0, 1, 0}, {0, 1, 0, 1}, {1, 1, 1, 1}, {2, 2, 1, 1}}
	}
	starts = append(starts, s.suggested)

	var best *Result
	var bestTrial trial
	for _, c := range starts {
		if r := s.evaluate(c); better(r, best) {
			best, bestTrial = r, c
		}
	}
	if best == nil {
		return nil
	}

	for improved := true; improved; {
		improved = false
		for _, c := range s.neighbours(bestTrial) {
			if r := s.evaluate(c); better(r, best) {
				best, bestTrial = r, c
				improved = true
			}
		}
	}
	return best
}

func (s *search) neighbours(c trial) []trial {
	out := []trial{
		{c.p + 1, c.q, c.sp, c.sq},
		{c.p - 1, c.q, c.sp, c.sq},
		{c.p, c.q + 1, c.sp, c.sq},
		{c.p, c.q - 1, c.sp, c.sq},
		{c.p + 1, c.q + 1, c.sp, c.sq},
		{c.p - 1, c.q - 1, c.sp, c.sq},
	}
	if s.seasonal {
		out = append(out,
			trial{c.p, c.q, c.sp + 1, c.sq},
			trial{c.p, c.q, c.sp - 1, c.sq},
			trial{c.p, c.q, c.sp, c.sq + 1},
			trial{c.p, c.q, c.sp, c.sq - 1},
		)
	}
	return out
}

// Predict generates point forecasts using the selected model.
func (r *Result) Predict(steps int) ([]float64, error) {
	switch {
	case r.IsSeasonal && r.SeasonalModel != nil:
		return r.SeasonalModel.Predict(steps)
	case r.Model != nil:
		return r.Model.Predict(steps)
	}
	return nil, ErrNoModel
}

// PredictWithInterval generates forecasts with normal prediction intervals
// using the selected model.
func (r *Result) PredictWithInterval(steps int, confidence float64) (mean, lower, upper []float64, err error) {
	switch {
	case r.IsSeasonal && r.SeasonalModel != nil:
		return r.SeasonalModel.PredictWithInterval(steps, confidence)
	case r.Model != nil:
		return r.Model.PredictWithInterval(steps, confidence)
	}
	return nil, nil, nil, ErrNoModel
}

// Residuals returns the model residuals.
func (r *Result) Residuals() []float64 {
	switch {
	case r.IsSeasonal && r.SeasonalModel != nil:
		return r.SeasonalModel.Residuals()
	case r.Model != nil:
		return r.Model.Residuals()
	}
	return nil
}

// LjungBox tests the selected model's residuals for remaining autocorrelation.
func (r *Result) LjungBox() *stats.LjungBoxResult {
	switch {
	case r.IsSeasonal && r.SeasonalModel != nil:
		return r.SeasonalModel.Summary().LjungBox
	case r.Model != nil:
		return r.Model.Summary().LjungBox
	}
	return nil
}
