package rolling

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/rollforecast/forecast"
)

// Result holds one forecast batch per origin. Row i of each matrix is the
// forecast launched from origin i+1. A Result is read-only once returned.
type Result struct {
	RunID   string
	Mode    Mode
	Horizon int

	Predictions *mat.Dense
	Lower       *mat.Dense
	Upper       *mat.Dense

	// Orders holds the model order used at each origin.
	Orders []forecast.Order
}

func newResult(runID string, mode Mode, batches []forecast.Batch, orders []forecast.Order, h int) *Result {
	n := len(batches)
	r := &Result{
		RunID:       runID,
		Mode:        mode,
		Horizon:     h,
		Predictions: mat.NewDense(n, h, nil),
		Lower:       mat.NewDense(n, h, nil),
		Upper:       mat.NewDense(n, h, nil),
		Orders:      orders,
	}
	for i, b := range batches {
		r.Predictions.SetRow(i, b.Mean)
		r.Lower.SetRow(i, b.Lower)
		r.Upper.SetRow(i, b.Upper)
	}
	return r
}

// Origins returns N, the number of forecast origins.
func (r *Result) Origins() int {
	n, _ := r.Predictions.Dims()
	return n
}

// Dims returns the (N, H) shape shared by the three matrices.
func (r *Result) Dims() (origins, horizon int) {
	return r.Predictions.Dims()
}

// Row returns a copy of the batch at 0-based origin row i.
func (r *Result) Row(i int) forecast.Batch {
	return forecast.Batch{
		Mean:  mat.Row(nil, i, r.Predictions),
		Lower: mat.Row(nil, i, r.Lower),
		Upper: mat.Row(nil, i, r.Upper),
	}
}
