// Package sarima implements Seasonal ARIMA (SARIMA) models.
package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/rollforecast/arima"
	"github.com/sartorproj/rollforecast/stats"
	"github.com/sartorproj/rollforecast/timeseries"
)

// Errors shared with the arima package so callers can match either backend.
var (
	ErrInsufficientData  = arima.ErrInsufficientData
	ErrInvalidData       = arima.ErrInvalidData
	ErrNotConverged      = arima.ErrNotConverged
	ErrNotFitted         = arima.ErrNotFitted
	ErrInvalidSteps      = arima.ErrInvalidSteps
	ErrInvalidConfidence = arima.ErrInvalidConfidence
)

// ErrInvalidPeriod is returned for seasonal terms with a period below 2.
var ErrInvalidPeriod = errors.New("seasonal period must be at least 2")

// minExtraObs is the number of observations required beyond the lags the
// order consumes.
const minExtraObs = 20

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P  int // non-seasonal AR order
	D  int // non-seasonal differencing order
	Q  int // non-seasonal MA order
	SP int // seasonal AR order
	SD int // seasonal differencing order
	SQ int // seasonal MA order
	M  int // seasonal period
}

func (o Order) String() string {
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

func (o Order) seasonal() bool {
	return o.SP > 0 || o.SD > 0 || o.SQ > 0
}

// Model represents a SARIMA model. Seasonal terms enter additively: the AR
// operator is 1 - sum(phi_i B^i) - sum(Phi_i B^(i*m)) and the MA operator is
// 1 + sum(theta_i B^i) + sum(Theta_i B^(i*m)).
type Model struct {
	Order     Order
	ARCoeffs  []float64 // phi
	MACoeffs  []float64 // theta
	SARCoeffs []float64 // Phi
	SMACoeffs []float64 // Theta
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	fitted     bool
	data       *timeseries.Series
	diffData   *timeseries.Series
	residuals  []float64
	fittedVals []float64
}

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return &Model{
		Order:     Order{P: p, D: d, Q: q, SP: sp, SD: sd, SQ: sq, M: m},
		ARCoeffs:  make([]float64, p),
		MACoeffs:  make([]float64, q),
		SARCoeffs: make([]float64, sp),
		SMACoeffs: make([]float64, sq),
	}
}

// MinObservations returns the number of observations Fit requires.
func (o Order) MinObservations() int {
	return o.P + o.Q + o.D + (o.SP+o.SD+o.SQ)*o.M + minExtraObs
}

// Fit estimates the model by conditional sum of squares on the series after
// d regular and D seasonal differences.
func (m *Model) Fit(series *timeseries.Series) error {
	o := m.Order
	if o.seasonal() && o.M < 2 {
		return fmt.Errorf("sarima: %s: %w", o, ErrInvalidPeriod)
	}
	if series.Len() < o.MinObservations() {
		return fmt.Errorf("sarima: %s needs %d observations, got %d: %w",
			o, o.MinObservations(), series.Len(), ErrInsufficientData)
	}
	if !series.Finite() {
		return fmt.Errorf("sarima: %w", ErrInvalidData)
	}

	m.fitted = false
	m.data = series
	diff := series.DiffN(o.D)
	for i := 0; i < o.SD; i++ {
		diff = diff.SeasonalDiff(o.M)
	}
	if diff.Len() == 0 {
		return fmt.Errorf("sarima: differencing left no data: %w", ErrInsufficientData)
	}
	m.diffData = diff

	m.ARCoeffs = make([]float64, o.P)
	m.MACoeffs = make([]float64, o.Q)
	m.SARCoeffs = make([]float64, o.SP)
	m.SMACoeffs = make([]float64, o.SQ)

	m.fitCSS()

	if !m.finite() {
		return fmt.Errorf("sarima: %s: %w", o, ErrNotConverged)
	}

	m.calculateIC()
	m.fitted = true
	return nil
}

// Fitted reports whether Fit has completed successfully.
func (m *Model) Fitted() bool {
	return m.fitted
}

func (m *Model) finite() bool {
	for _, group := range [][]float64{m.ARCoeffs, m.MACoeffs, m.SARCoeffs, m.SMACoeffs, {m.Intercept, m.Variance}} {
		for _, v := range group {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// arLags merges regular and seasonal AR coefficients into one lag vector,
// index j holding the coefficient of B^(j+1).
func (m *Model) arLags() []float64 {
	return mergeLags(m.ARCoeffs, m.SARCoeffs, m.Order.M)
}

func (m *Model) maLags() []float64 {
	return mergeLags(m.MACoeffs, m.SMACoeffs, m.Order.M)
}

func mergeLags(regular, seasonal []float64, period int) []float64 {
	n := len(regular)
	if len(seasonal) > 0 {
		n = max(n, len(seasonal)*period)
	}
	lags := make([]float64, n)
	copy(lags, regular)
	for i, c := range seasonal {
		lags[(i+1)*period-1] += c
	}
	return lags
}

// fitCSS starts the AR terms at their Yule-Walker estimates, the seasonal
// ones from the autocorrelations at multiples of the period, and refines
// everything by conditional sum of squares.
func (m *Model) fitCSS() {
	y := m.diffData.Values
	p, sp, period := m.Order.P, m.Order.SP, m.Order.M
	m.Intercept = stat.Mean(y, nil)

	if p > 0 {
		if acf := stats.ACF(m.diffData, p); acf != nil {
			if phi := stats.YuleWalker(acf, p); phi != nil {
				for i, c := range phi {
					m.ARCoeffs[i] = clamp(c)
				}
			}
		}
	}
	if sp > 0 {
		if acf := stats.ACF(m.diffData, sp*period); len(acf) > sp*period {
			seasonal := make([]float64, sp+1)
			for i := range seasonal {
				seasonal[i] = acf[i*period]
			}
			if phi := stats.YuleWalker(seasonal, sp); phi != nil {
				for i, c := range phi {
					m.SARCoeffs[i] = clamp(c)
				}
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}

	m.optimizeCSS(y)
}

// cssResiduals fills residuals from start onwards and returns their sum of
// squares.
func (m *Model) cssResiduals(y, residuals []float64, start int) float64 {
	ar, ma := m.arLags(), m.maLags()
	sse := 0.0
	for t := start; t < len(y); t++ {
		pred := m.Intercept
		for j := 1; j <= len(ar) && t-j >= 0; j++ {
			pred += ar[j-1] * (y[t-j] - m.Intercept)
		}
		for j := 1; j <= len(ma) && t-j >= 0; j++ {
			pred += ma[j-1] * residuals[t-j]
		}
		residuals[t] = y[t] - pred
		sse += residuals[t] * residuals[t]
	}
	return sse
}

// coeffGroup ties a coefficient slice to its lag spacing and momentum state.
type coeffGroup struct {
	coeffs   []float64
	step     int
	ma       bool
	velocity []float64
	best     []float64
}

// optimizeCSS runs gradient descent with momentum and a decaying learning
// rate, keeping the best coefficients seen. Gradients are divided by n times
// the variance of y, so the fitted coefficients do not depend on the units
// of the data.
func (m *Model) optimizeCSS(y []float64) {
	n := len(y)
	o := m.Order

	const (
		maxIter   = 300
		tolerance = 1e-10
		momentum  = 0.5
		decay     = 0.995
		patience  = 20
	)
	learningRate := 0.1

	scale := float64(n) * stat.Variance(y, nil)
	if scale <= 0 || math.IsNaN(scale) {
		scale = float64(n)
	}

	groups := []*coeffGroup{
		{coeffs: m.ARCoeffs, step: 1},
		{coeffs: m.SARCoeffs, step: o.M},
		{coeffs: m.MACoeffs, step: 1, ma: true},
		{coeffs: m.SMACoeffs, step: o.M, ma: true},
	}
	for _, g := range groups {
		g.velocity = make([]float64, len(g.coeffs))
		g.best = make([]float64, len(g.coeffs))
		copy(g.best, g.coeffs)
	}

	start := max(o.P, o.Q, o.SP*o.M, o.SQ*o.M)
	if start >= n-10 {
		start = 0
	}

	residuals := make([]float64, n)
	bestSSE := m.cssResiduals(y, residuals, start)
	sse := bestSSE
	noImprove := 0

	for iter := 0; iter < maxIter; iter++ {
		for _, g := range groups {
			for i := range g.coeffs {
				lag := (i + 1) * g.step
				grad := 0.0
				for t := max(start, lag); t < n; t++ {
					if g.ma {
						grad -= 2 * residuals[t] * residuals[t-lag]
					} else {
						grad -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
					}
				}
				g.velocity[i] = momentum*g.velocity[i] + learningRate*grad/scale
				g.coeffs[i] = clamp(g.coeffs[i] - g.velocity[i])
			}
		}
		learningRate *= decay

		prevSSE := sse
		sse = m.cssResiduals(y, residuals, start)
		if sse < bestSSE {
			bestSSE = sse
			for _, g := range groups {
				copy(g.best, g.coeffs)
			}
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove > patience || math.Abs(prevSSE-sse) <= tolerance*prevSSE {
			break
		}
	}

	for _, g := range groups {
		copy(g.coeffs, g.best)
	}

	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	m.cssResiduals(y, m.residuals, 0)
	for t := range y {
		m.fittedVals[t] = y[t] - m.residuals[t]
	}

	sse = 0.0
	for t := start; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
	}
	count := n - start
	numParams := o.P + o.Q + o.SP + o.SQ + 1
	if count > numParams {
		m.Variance = sse / float64(count-numParams)
	} else {
		m.Variance = sse / float64(count)
	}
}

func clamp(c float64) float64 {
	return math.Max(-0.99, math.Min(0.99, c))
}

func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.P + m.Order.Q + m.Order.SP + m.Order.SQ + 1

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	logLik := math.Inf(-1)
	if m.Variance > 0 {
		nf := float64(n)
		logLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(m.Variance) - sse/(2*m.Variance)
	}

	ic := stats.CalculateIC(logLik, n, k)
	m.LogLik = ic.LogLik
	m.AIC = ic.AIC
	m.AICc = ic.AICc
	m.BIC = ic.BIC
}

// Predict generates point forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, ErrInvalidSteps
	}

	ar, ma := m.arLags(), m.maLags()
	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for j := 1; j <= len(ar) && t-j >= 0; j++ {
			pred += ar[j-1] * (extY[t-j] - m.Intercept)
		}
		// only in-sample shocks contribute
		for j := 1; j <= len(ma) && t-j >= 0; j++ {
			if t-j < n {
				pred += ma[j-1] * m.residuals[t-j]
			}
		}
		extY[t] = pred
	}

	return stats.Integrate(extY[n:], m.data.Values, m.differencingLags()), nil
}

// differencingLags lists the lags Fit differenced by, regular ones first.
func (m *Model) differencingLags() []int {
	lags := make([]int, 0, m.Order.D+m.Order.SD)
	for i := 0; i < m.Order.D; i++ {
		lags = append(lags, 1)
	}
	for i := 0; i < m.Order.SD; i++ {
		lags = append(lags, m.Order.M)
	}
	return lags
}

// PredictWithInterval returns point forecasts with symmetric normal
// prediction intervals. The forecast variance uses the psi-weights of the
// model with (1-B)^d (1-B^m)^D folded into the AR operator.
func (m *Model) PredictWithInterval(steps int, confidence float64) (mean, lower, upper []float64, err error) {
	if confidence <= 0 || confidence >= 1 {
		return nil, nil, nil, ErrInvalidConfidence
	}
	mean, err = m.Predict(steps)
	if err != nil {
		return nil, nil, nil, err
	}

	ar := stats.ExpandAR(m.arLags(), m.Order.D, m.Order.SD, m.Order.M)
	se := stats.ForecastStdErrors(m.Variance, stats.PsiWeights(ar, m.maLags(), steps))
	lower, upper = arima.Bounds(mean, se, confidence)
	return mean, lower, upper, nil
}

// Residuals returns a copy of the model residuals.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// FittedValues returns a copy of the fitted values on the differenced scale.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.fittedVals...)
}

// Summary represents a model summary.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model, or nil before Fit.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	fitdf := m.Order.P + m.Order.Q + m.Order.SP + m.Order.SQ
	lags := 10
	if m.Order.M > 1 && m.Order.seasonal() {
		lags = 2 * m.Order.M
	}
	lb := stats.LjungBox(timeseries.New(m.residuals), lags, fitdf)

	clone := func(c []float64) []float64 { return append([]float64(nil), c...) }
	return &Summary{
		Order:     m.Order,
		ARCoeffs:  clone(m.ARCoeffs),
		MACoeffs:  clone(m.MACoeffs),
		SARCoeffs: clone(m.SARCoeffs),
		SMACoeffs: clone(m.SMACoeffs),
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.data.Len(),
		LjungBox:  lb,
	}
}
