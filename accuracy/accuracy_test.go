package accuracy

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/rolling"
	"github.com/sartorproj/rollforecast/timeseries"
)

// oracle forecasts the true continuation of a known series.
type oracle struct {
	truth  []float64
	offset float64
}

type oracleModel struct {
	future []float64
	offset float64
}

func (m oracleModel) Order() forecast.Order { return forecast.Order{} }

func (m oracleModel) Forecast(h int) (forecast.Batch, error) {
	b := forecast.Batch{Mean: make([]float64, h), Lower: make([]float64, h), Upper: make([]float64, h)}
	for k := 0; k < h; k++ {
		b.Mean[k] = m.future[k] + m.offset
		b.Lower[k] = b.Mean[k] - 0.5
		b.Upper[k] = b.Mean[k] + 0.5
	}
	return b, nil
}

func (o oracle) Fit(series *timeseries.Series) (forecast.Model, error) {
	return o.Reestimate(forecast.Order{}, series)
}

func (o oracle) Reestimate(_ forecast.Order, series *timeseries.Series) (forecast.Model, error) {
	return oracleModel{future: o.truth[series.Len():], offset: o.offset}, nil
}

func run(t *testing.T, offset float64) (*rolling.Result, *timeseries.Series) {
	t.Helper()
	truth := []float64{5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	train, test, err := timeseries.New(truth).SplitAt(5)
	require.NoError(t, err)

	backend := oracle{truth: truth, offset: offset}
	model, err := backend.Fit(train)
	require.NoError(t, err)

	res, err := rolling.Evaluate(context.Background(), backend, model, 2, train, test, rolling.ReestimateOnly)
	require.NoError(t, err)
	return res, test
}

func TestScorePerfect(t *testing.T) {
	res, test := run(t, 0)
	scores, err := Score(res, test)
	require.NoError(t, err)

	require.Len(t, scores.Steps, 2)
	for _, m := range append(scores.Steps, scores.Overall) {
		assert.Zero(t, m.RMSE)
		assert.Zero(t, m.MAE)
		assert.Zero(t, m.MAPE)
		assert.Equal(t, 1.0, m.Coverage)
	}
	assert.Equal(t, 4, scores.Steps[0].N)
	assert.Equal(t, 8, scores.Overall.N)
}

func TestScoreBiased(t *testing.T) {
	res, test := run(t, 2)
	scores, err := Score(res, test)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, scores.Overall.RMSE, 1e-12)
	assert.InDelta(t, 2.0, scores.Overall.MAE, 1e-12)
	assert.Zero(t, scores.Overall.Coverage)

	// Step 1 targets test[0..3] = 10..13.
	want := 100 * (2.0/10 + 2.0/11 + 2.0/12 + 2.0/13) / 4
	assert.InDelta(t, want, scores.Steps[0].MAPE, 1e-9)
}

func TestScoreAlignment(t *testing.T) {
	res := &rolling.Result{
		Predictions: mat.NewDense(2, 2, []float64{1, 2, 2, 4}),
		Lower:       mat.NewDense(2, 2, []float64{0, 0, 0, 0}),
		Upper:       mat.NewDense(2, 2, []float64{9, 9, 9, 9}),
	}
	test := timeseries.New([]float64{1, 2, 3})

	scores, err := Score(res, test)
	require.NoError(t, err)
	assert.Zero(t, scores.Steps[0].MAE)
	// Step 2: row 0 targets test[1]=2, row 1 targets test[2]=3.
	assert.InDelta(t, 0.5, scores.Steps[1].MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), scores.Steps[1].RMSE, 1e-12)
}

func TestScoreZeroActuals(t *testing.T) {
	res := &rolling.Result{
		Predictions: mat.NewDense(1, 1, []float64{1}),
		Lower:       mat.NewDense(1, 1, []float64{0}),
		Upper:       mat.NewDense(1, 1, []float64{2}),
	}
	scores, err := Score(res, timeseries.New([]float64{0}))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(scores.Overall.MAPE))
	assert.Equal(t, 1.0, scores.Overall.MAE)
	assert.Equal(t, 1.0, scores.Overall.Coverage)
}

func TestScoreLengthMismatch(t *testing.T) {
	res, test := run(t, 0)
	_, err := Score(res, test.Head(test.Len()-1))
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Score(nil, test)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
