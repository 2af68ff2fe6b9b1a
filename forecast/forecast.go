// Package forecast defines the capability interfaces the rolling evaluator
// programs against and an ARIMA backend that satisfies them.
package forecast

import (
	"errors"
	"fmt"

	"github.com/sartorproj/rollforecast/timeseries"
)

// ErrBatchLength is returned by Batch.Validate when a slice has the wrong length.
var ErrBatchLength = errors.New("forecast batch has wrong length")

// Order is the structural order of a model: (p,d,q) and, for seasonal
// models, (P,D,Q) at period M.
type Order struct {
	P  int `json:"p" yaml:"p"`
	D  int `json:"d" yaml:"d"`
	Q  int `json:"q" yaml:"q"`
	SP int `json:"sp,omitempty" yaml:"sp,omitempty"`
	SD int `json:"sd,omitempty" yaml:"sd,omitempty"`
	SQ int `json:"sq,omitempty" yaml:"sq,omitempty"`
	M  int `json:"m,omitempty" yaml:"m,omitempty"`
}

// IsSeasonal reports whether any seasonal term is present.
func (o Order) IsSeasonal() bool {
	return o.SP > 0 || o.SD > 0 || o.SQ > 0
}

func (o Order) String() string {
	if o.IsSeasonal() {
		return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Batch is an h-step forecast with its prediction interval.
type Batch struct {
	Mean  []float64
	Lower []float64
	Upper []float64
}

// Len returns the number of forecast steps.
func (b Batch) Len() int {
	return len(b.Mean)
}

// Validate checks that all three slices hold exactly h values.
func (b Batch) Validate(h int) error {
	if len(b.Mean) != h || len(b.Lower) != h || len(b.Upper) != h {
		return fmt.Errorf("%w: want %d, got mean=%d lower=%d upper=%d",
			ErrBatchLength, h, len(b.Mean), len(b.Lower), len(b.Upper))
	}
	return nil
}

// Model is a fitted model handle.
type Model interface {
	Order() Order
	// Forecast predicts the next horizon values after the fitting window.
	Forecast(horizon int) (Batch, error)
}

// Backend fits an initial model to a series.
type Backend interface {
	Fit(series *timeseries.Series) (Model, error)
}

// Reestimator refits the coefficients of a fixed order on a new series.
type Reestimator interface {
	Reestimate(order Order, series *timeseries.Series) (Model, error)
}

// Selector runs the full order-selection procedure on a new series.
type Selector interface {
	Select(series *timeseries.Series) (Model, error)
}
