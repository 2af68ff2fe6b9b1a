// Package arima implements non-seasonal ARIMA (AutoRegressive Integrated
// Moving Average) models.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/rollforecast/stats"
	"github.com/sartorproj/rollforecast/timeseries"
)

var (
	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")
	// ErrInvalidData is returned when the series contains NaN or Inf.
	ErrInvalidData = errors.New("series contains non-finite values")
	// ErrNotConverged is returned when estimation ends with non-finite parameters.
	ErrNotConverged = errors.New("estimation did not converge")
	// ErrNotFitted is returned when predicting from a model that was never fitted.
	ErrNotFitted = errors.New("model must be fitted before prediction")
	// ErrInvalidSteps is returned for a forecast horizon below 1.
	ErrInvalidSteps = errors.New("steps must be at least 1")
	// ErrInvalidConfidence is returned for interval levels outside (0, 1).
	ErrInvalidConfidence = errors.New("confidence must be in (0, 1)")
)

// minExtraObs is the number of observations required beyond p+d+q.
const minExtraObs = 10

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int // AR order
	D int // differencing order
	Q int // MA order
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Model represents an ARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // phi
	MACoeffs  []float64 // theta
	Intercept float64
	Variance  float64 // residual variance
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

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return &Model{
		Order:    Order{P: p, D: d, Q: q},
		ARCoeffs: make([]float64, p),
		MACoeffs: make([]float64, q),
	}
}

// Fit estimates the model by conditional sum of squares. Refitting the same
// model starts from scratch, so repeated fits of equal data are identical.
func (m *Model) Fit(series *timeseries.Series) error {
	o := m.Order
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("arima: negative order %s", o)
	}
	if series.Len() < o.P+o.Q+o.D+minExtraObs {
		return fmt.Errorf("arima: %s needs %d observations, got %d: %w",
			o, o.P+o.Q+o.D+minExtraObs, series.Len(), ErrInsufficientData)
	}
	if !series.Finite() {
		return fmt.Errorf("arima: %w", ErrInvalidData)
	}

	m.fitted = false
	m.data = series
	m.diffData = series.DiffN(o.D)
	m.ARCoeffs = make([]float64, o.P)
	m.MACoeffs = make([]float64, o.Q)

	m.fitCSS()

	if !m.finite() {
		return fmt.Errorf("arima: %s: %w", o, ErrNotConverged)
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
	ok := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for _, c := range m.ARCoeffs {
		if !ok(c) {
			return false
		}
	}
	for _, c := range m.MACoeffs {
		if !ok(c) {
			return false
		}
	}
	return ok(m.Intercept) && ok(m.Variance)
}

// fitCSS fits the model using Conditional Sum of Squares estimation with
// Yule-Walker starting values for the AR part.
func (m *Model) fitCSS() {
	y := m.diffData.Values
	p, q := m.Order.P, m.Order.Q
	m.Intercept = stat.Mean(y, nil)

	if p == 0 && q == 0 {
		n := len(y)
		m.residuals = make([]float64, n)
		m.fittedVals = make([]float64, n)
		for i, v := range y {
			m.residuals[i] = v - m.Intercept
			m.fittedVals[i] = m.Intercept
		}
		m.Variance = stat.Variance(y, nil)
		return
	}

	if p > 0 {
		if acf := stats.ACF(m.diffData, p); acf != nil {
			if phi := stats.YuleWalker(acf, p); phi != nil {
				m.ARCoeffs = phi
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}

	m.optimizeCSS(y)
}

// cssResiduals fills residuals from index start onwards and returns their
// sum of squares. Residuals before start are left as given.
func (m *Model) cssResiduals(y, residuals []float64, start int) float64 {
	sse := 0.0
	for t := start; t < len(y); t++ {
		pred := m.Intercept
		for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
		}
		for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
			pred += m.MACoeffs[i] * residuals[t-i-1]
		}
		residuals[t] = y[t] - pred
		sse += residuals[t] * residuals[t]
	}
	return sse
}

// optimizeCSS refines the coefficients by gradient descent on the conditional
// sum of squares, keeping each coefficient inside (-0.99, 0.99). Gradients
// are scaled by the variance of y so the steps do not depend on the units of
// the data, and the lowest-SSE coefficients seen are kept.
func (m *Model) optimizeCSS(y []float64) {
	n := len(y)
	p, q := m.Order.P, m.Order.Q
	start := max(p, q)

	const (
		maxIter      = 100
		tolerance    = 1e-9
		learningRate = 0.1
	)

	scale := float64(n) * stat.Variance(y, nil)
	if scale <= 0 || math.IsNaN(scale) {
		scale = float64(n)
	}

	residuals := make([]float64, n)
	for t := 0; t < start && t < n; t++ {
		residuals[t] = y[t] - m.Intercept
	}
	bestAR := append([]float64(nil), m.ARCoeffs...)
	bestMA := append([]float64(nil), m.MACoeffs...)
	bestSSE := m.cssResiduals(y, residuals, start)
	sse := bestSSE

	for iter := 0; iter < maxIter; iter++ {
		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		for t := start; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
		}

		for i := range m.ARCoeffs {
			m.ARCoeffs[i] = clampCoeff(m.ARCoeffs[i] - learningRate*arGrad[i]/scale)
		}
		for i := range m.MACoeffs {
			m.MACoeffs[i] = clampCoeff(m.MACoeffs[i] - learningRate*maGrad[i]/scale)
		}

		prevSSE := sse
		sse = m.cssResiduals(y, residuals, start)
		if sse < bestSSE {
			bestSSE = sse
			copy(bestAR, m.ARCoeffs)
			copy(bestMA, m.MACoeffs)
		}
		if math.Abs(prevSSE-sse) <= tolerance*prevSSE {
			break
		}
	}
	copy(m.ARCoeffs, bestAR)
	copy(m.MACoeffs, bestMA)

	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < start && t < n; t++ {
		m.fittedVals[t] = m.Intercept
		m.residuals[t] = y[t] - m.Intercept
	}
	sse = m.cssResiduals(y, m.residuals, start)
	for t := start; t < n; t++ {
		m.fittedVals[t] = y[t] - m.residuals[t]
	}

	count := n - start
	if count > p+q+1 {
		m.Variance = sse / float64(count-p-q-1)
	} else {
		m.Variance = sse / float64(count)
	}
}

func clampCoeff(c float64) float64 {
	return math.Max(-0.99, math.Min(0.99, c))
}

// calculateIC calculates the Gaussian log-likelihood and AIC, AICc, BIC.
func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.P + m.Order.Q + 1

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

	p, q := m.Order.P, m.Order.Q
	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		// future shocks have expectation zero
		for i := 0; i < q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * m.residuals[t-i-1]
		}
		extY[t] = pred
	}

	forecasts := extY[n:]
	if m.Order.D == 0 {
		return forecasts, nil
	}

	lags := make([]int, m.Order.D)
	for i := range lags {
		lags[i] = 1
	}
	return stats.Integrate(forecasts, m.data.Values, lags), nil
}

// PredictWithInterval returns point forecasts with symmetric normal
// prediction intervals at the given confidence level. The h-step variance is
// sigma^2 times the sum of the first h squared psi-weights of the model with
// its differencing folded into the AR operator.
func (m *Model) PredictWithInterval(steps int, confidence float64) (mean, lower, upper []float64, err error) {
	if confidence <= 0 || confidence >= 1 {
		return nil, nil, nil, ErrInvalidConfidence
	}
	mean, err = m.Predict(steps)
	if err != nil {
		return nil, nil, nil, err
	}

	ar := stats.ExpandAR(m.ARCoeffs, m.Order.D, 0, 0)
	se := stats.ForecastStdErrors(m.Variance, stats.PsiWeights(ar, m.MACoeffs, steps))
	lower, upper = Bounds(mean, se, confidence)
	return mean, lower, upper, nil
}

// Bounds returns mean -/+ z*se where z is the two-sided normal quantile for
// confidence.
func Bounds(mean, se []float64, confidence float64) (lower, upper []float64) {
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	lower = make([]float64, len(mean))
	upper = make([]float64, len(mean))
	for i, v := range mean {
		lower[i] = v - z*se[i]
		upper[i] = v + z*se[i]
	}
	return lower, upper
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

// Summary describes a fitted model.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
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

	lb := stats.LjungBox(timeseries.New(m.residuals), 10, m.Order.P+m.Order.Q)

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  append([]float64(nil), m.ARCoeffs...),
		MACoeffs:  append([]float64(nil), m.MACoeffs...),
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
