// Package accuracy scores rolling-origin forecasts against the observed
// test series.
package accuracy

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/rollforecast/rolling"
	"github.com/sartorproj/rollforecast/timeseries"
)

// ErrLengthMismatch is returned when the test series does not cover every
// forecast target of the result.
var ErrLengthMismatch = errors.New("test length does not match result")

// Metrics summarises forecast errors over a set of targets.
type Metrics struct {
	RMSE float64 `json:"rmse" yaml:"rmse"`
	MAE  float64 `json:"mae" yaml:"mae"`
	// MAPE is in percent and ignores zero actuals. NaN when every actual is zero.
	MAPE float64 `json:"mape" yaml:"mape"`
	// Coverage is the fraction of actuals inside the prediction interval.
	Coverage float64 `json:"coverage" yaml:"coverage"`
	N        int     `json:"n" yaml:"n"`
}

// Scores holds per-step and overall metrics. Steps[h-1] covers every
// forecast made h steps ahead.
type Scores struct {
	Steps   []Metrics `json:"steps" yaml:"steps"`
	Overall Metrics   `json:"overall" yaml:"overall"`
}

// Score compares each forecast in res with the test observation it targets:
// row i (0-based), step h (1-based) against test[i+h-1].
func Score(res *rolling.Result, test *timeseries.Series) (*Scores, error) {
	if res == nil || test == nil {
		return nil, fmt.Errorf("score: %w", ErrLengthMismatch)
	}
	n, h := res.Dims()
	if want := n + h - 1; test.Len() != want {
		return nil, fmt.Errorf("score: test has %d observations, result needs %d: %w",
			test.Len(), want, ErrLengthMismatch)
	}

	scores := &Scores{Steps: make([]Metrics, h)}
	var all accumulator
	for step := 0; step < h; step++ {
		mean := mat.Col(nil, step, res.Predictions)
		lower := mat.Col(nil, step, res.Lower)
		upper := mat.Col(nil, step, res.Upper)
		actual := test.Values[step : step+n]

		var acc accumulator
		acc.add(actual, mean, lower, upper)
		all.add(actual, mean, lower, upper)
		scores.Steps[step] = acc.metrics()
	}
	scores.Overall = all.metrics()
	return scores, nil
}

type accumulator struct {
	errs    []float64
	pct     []float64
	covered int
}

func (a *accumulator) add(actual, mean, lower, upper []float64) {
	e := make([]float64, len(actual))
	floats.SubTo(e, actual, mean)
	a.errs = append(a.errs, e...)

	for i, y := range actual {
		if y != 0 {
			a.pct = append(a.pct, math.Abs(e[i]/y))
		}
		if y >= lower[i] && y <= upper[i] {
			a.covered++
		}
	}
}

func (a *accumulator) metrics() Metrics {
	n := len(a.errs)
	if n == 0 {
		return Metrics{RMSE: math.NaN(), MAE: math.NaN(), MAPE: math.NaN(), Coverage: math.NaN()}
	}
	m := Metrics{
		RMSE:     floats.Norm(a.errs, 2) / math.Sqrt(float64(n)),
		MAE:      floats.Norm(a.errs, 1) / float64(n),
		MAPE:     math.NaN(),
		Coverage: float64(a.covered) / float64(n),
		N:        n,
	}
	if len(a.pct) > 0 {
		m.MAPE = 100 * floats.Sum(a.pct) / float64(len(a.pct))
	}
	return m
}
