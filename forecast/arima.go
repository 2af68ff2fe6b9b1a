package forecast

import (
	"github.com/sartorproj/rollforecast/arima"
	"github.com/sartorproj/rollforecast/autoarima"
	"github.com/sartorproj/rollforecast/sarima"
	"github.com/sartorproj/rollforecast/stats"
	"github.com/sartorproj/rollforecast/timeseries"
)

// DefaultConfidence is the prediction interval level used when none is set.
const DefaultConfidence = 0.95

// ARIMABackend fits ARIMA and SARIMA models. It implements Backend,
// Reestimator and Selector.
type ARIMABackend struct {
	// Confidence is the prediction interval level. Zero means DefaultConfidence.
	Confidence float64
	// Auto configures Select. Nil means autoarima.DefaultConfig.
	Auto *autoarima.Config
}

var (
	_ Backend     = (*ARIMABackend)(nil)
	_ Reestimator = (*ARIMABackend)(nil)
	_ Selector    = (*ARIMABackend)(nil)
)

// NewARIMABackend returns a backend using auto for order selection.
func NewARIMABackend(auto *autoarima.Config) *ARIMABackend {
	return &ARIMABackend{Confidence: DefaultConfidence, Auto: auto}
}

func (b *ARIMABackend) confidence() float64 {
	if b.Confidence == 0 {
		return DefaultConfidence
	}
	return b.Confidence
}

// Fit selects and fits an initial model, like Select.
func (b *ARIMABackend) Fit(series *timeseries.Series) (Model, error) {
	return b.Select(series)
}

// Reestimate fits the exact given order to series. Seasonal orders use a
// SARIMA model.
func (b *ARIMABackend) Reestimate(order Order, series *timeseries.Series) (Model, error) {
	if order.IsSeasonal() {
		m := sarima.New(order.P, order.D, order.Q, order.SP, order.SD, order.SQ, order.M)
		if err := m.Fit(series); err != nil {
			return nil, err
		}
		return &sarimaModel{model: m, confidence: b.confidence()}, nil
	}

	m := arima.New(order.P, order.D, order.Q)
	if err := m.Fit(series); err != nil {
		return nil, err
	}
	return &arimaModel{model: m, confidence: b.confidence()}, nil
}

// Select runs automatic order selection on series.
func (b *ARIMABackend) Select(series *timeseries.Series) (Model, error) {
	result, err := autoarima.AutoARIMA(series, b.Auto)
	if err != nil {
		return nil, err
	}
	if result.IsSeasonal {
		return &sarimaModel{model: result.SeasonalModel, confidence: b.confidence()}, nil
	}
	return &arimaModel{model: result.Model, confidence: b.confidence()}, nil
}

// Summary describes a fitted ARIMA-family model.
type Summary struct {
	Order     Order
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	Variance  float64
	Intercept float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summarizer is implemented by models that can describe their fit.
type Summarizer interface {
	Summary() Summary
}

type arimaModel struct {
	model      *arima.Model
	confidence float64
}

func (m *arimaModel) Order() Order {
	o := m.model.Order
	return Order{P: o.P, D: o.D, Q: o.Q}
}

func (m *arimaModel) Forecast(horizon int) (Batch, error) {
	mean, lower, upper, err := m.model.PredictWithInterval(horizon, m.confidence)
	if err != nil {
		return Batch{}, err
	}
	return Batch{Mean: mean, Lower: lower, Upper: upper}, nil
}

func (m *arimaModel) Summary() Summary {
	s := m.model.Summary()
	return Summary{
		Order:     m.Order(),
		AIC:       s.AIC,
		AICc:      s.AICc,
		BIC:       s.BIC,
		LogLik:    s.LogLik,
		Variance:  s.Variance,
		Intercept: s.Intercept,
		NObs:      s.NObs,
		LjungBox:  s.LjungBox,
	}
}

type sarimaModel struct {
	model      *sarima.Model
	confidence float64
}

func (m *sarimaModel) Order() Order {
	o := m.model.Order
	order := Order{P: o.P, D: o.D, Q: o.Q, SP: o.SP, SD: o.SD, SQ: o.SQ, M: o.M}
	if !order.IsSeasonal() {
		// a SARIMA fit without seasonal terms is the plain ARIMA order
		order.M = 0
	}
	return order
}

func (m *sarimaModel) Forecast(horizon int) (Batch, error) {
	mean, lower, upper, err := m.model.PredictWithInterval(horizon, m.confidence)
	if err != nil {
		return Batch{}, err
	}
	return Batch{Mean: mean, Lower: lower, Upper: upper}, nil
}

func (m *sarimaModel) Summary() Summary {
	s := m.model.Summary()
	return Summary{
		Order:     m.Order(),
		AIC:       s.AIC,
		AICc:      s.AICc,
		BIC:       s.BIC,
		LogLik:    s.LogLik,
		Variance:  s.Variance,
		Intercept: s.Intercept,
		NObs:      s.NObs,
		LjungBox:  s.LjungBox,
	}
}
