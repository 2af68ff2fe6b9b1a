package rolling

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/timeseries"
)

var errBoom = errors.New("boom")

// lastValueModel forecasts the last window value plus the step number.
type lastValueModel struct {
	order forecast.Order
	last  float64
	short bool
}

func (m *lastValueModel) Order() forecast.Order { return m.order }

func (m *lastValueModel) Forecast(h int) (forecast.Batch, error) {
	if m.short {
		h--
	}
	b := forecast.Batch{
		Mean:  make([]float64, h),
		Lower: make([]float64, h),
		Upper: make([]float64, h),
	}
	for k := 0; k < h; k++ {
		b.Mean[k] = m.last + float64(k+1)
		b.Lower[k] = b.Mean[k] - 1
		b.Upper[k] = b.Mean[k] + 1
	}
	return b, nil
}

// fakeBackend is deterministic and records every window it is asked to fit.
type fakeBackend struct {
	mu      sync.Mutex
	windows map[int][]float64
	stamps  map[int][]time.Time

	failAt      int // window length that fails, 0 for never
	changeOrder bool
	short       bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{windows: make(map[int][]float64), stamps: make(map[int][]time.Time)}
}

func (b *fakeBackend) record(series *timeseries.Series) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[series.Len()] = append([]float64(nil), series.Values...)
	b.stamps[series.Len()] = append([]time.Time(nil), series.Timestamps...)
	if b.failAt > 0 && series.Len() == b.failAt {
		return errBoom
	}
	return nil
}

func (b *fakeBackend) model(order forecast.Order, series *timeseries.Series) *lastValueModel {
	return &lastValueModel{order: order, last: series.Values[series.Len()-1], short: b.short}
}

func (b *fakeBackend) Fit(series *timeseries.Series) (forecast.Model, error) {
	return b.model(forecast.Order{P: 1}, series), nil
}

func (b *fakeBackend) Reestimate(order forecast.Order, series *timeseries.Series) (forecast.Model, error) {
	if err := b.record(series); err != nil {
		return nil, err
	}
	if b.changeOrder {
		order.Q++
	}
	return b.model(order, series), nil
}

// Select picks an order that depends on the window length.
func (b *fakeBackend) Select(series *timeseries.Series) (forecast.Model, error) {
	if err := b.record(series); err != nil {
		return nil, err
	}
	return b.model(forecast.Order{P: series.Len() % 3}, series), nil
}

func (b *fakeBackend) fits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// fitOnly has neither optional capability.
type fitOnly struct{}

func (fitOnly) Fit(series *timeseries.Series) (forecast.Model, error) {
	return &lastValueModel{last: series.Values[series.Len()-1]}, nil
}

func seq(start, n int) *timeseries.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(start + i)
	}
	return timeseries.New(values)
}

func initialModel() forecast.Model {
	return &lastValueModel{order: forecast.Order{P: 1}}
}

func evaluate(t *testing.T, backend forecast.Backend, cfg Config, train, test *timeseries.Series, opts ...Option) (*Result, error) {
	t.Helper()
	e, err := New(backend, cfg, opts...)
	require.NoError(t, err)
	return e.Evaluate(context.Background(), initialModel(), train, test)
}

func TestEvaluateShape(t *testing.T) {
	tests := []struct {
		name      string
		trainLen  int
		testLen   int
		horizon   int
		wantRows  int
		wantCols  int
		wantFirst float64
	}{
		{"small", 10, 6, 3, 4, 3, 10},
		{"horizon equals test length", 10, 5, 5, 1, 5, 10},
		{"one step", 10, 5, 1, 5, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train := seq(1, tt.trainLen)
			test := seq(tt.trainLen+1, tt.testLen)
			res, err := evaluate(t, newFakeBackend(), Config{Horizon: tt.horizon, Mode: ReestimateOnly}, train, test)
			require.NoError(t, err)

			rows, cols := res.Dims()
			assert.Equal(t, tt.wantRows, rows)
			assert.Equal(t, tt.wantCols, cols)
			assert.Equal(t, tt.wantRows, res.Origins())
			assert.Len(t, res.Orders, tt.wantRows)
			assert.Equal(t, tt.wantFirst+1, res.Predictions.At(0, 0))
			assert.NotEmpty(t, res.RunID)
		})
	}
}

func TestEvaluateMonthlySplit(t *testing.T) {
	// 1800 months split 1200/600 with a ten-year horizon.
	train := seq(1, 1200)
	test := seq(1201, 600)
	res, err := evaluate(t, newFakeBackend(), Config{Horizon: 120, Mode: ReestimateOnly}, train, test)
	require.NoError(t, err)

	rows, cols := res.Dims()
	assert.Equal(t, 481, rows)
	assert.Equal(t, 120, cols)
}

func TestEvaluateNoLookahead(t *testing.T) {
	train := seq(1, 8)
	test := seq(100, 6)
	backend := newFakeBackend()

	res, err := evaluate(t, backend, Config{Horizon: 2, Mode: ReestimateOnly}, train, test)
	require.NoError(t, err)
	require.Equal(t, 5, res.Origins())

	for i := 1; i <= res.Origins(); i++ {
		window, ok := backend.windows[train.Len()+i-1]
		require.True(t, ok, "origin %d was not fitted", i)

		want := append(append([]float64(nil), train.Values...), test.Values[:i-1]...)
		assert.Equal(t, want, window, "origin %d", i)

		last := want[len(want)-1]
		assert.Equal(t, []float64{last + 1, last + 2}, res.Row(i-1).Mean, "origin %d", i)
	}
}

func TestEvaluateWindowsKeepDateIndex(t *testing.T) {
	train := timeseries.NewMonthly(timeseries.Epoch, seq(1, 8).Values)
	test := timeseries.NewMonthly(timeseries.Epoch.AddDate(0, 8, 0), seq(100, 4).Values)
	backend := newFakeBackend()

	_, err := evaluate(t, backend, Config{Horizon: 2, Mode: ReestimateOnly}, train, test)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		n := train.Len() + i - 1
		stamps := backend.stamps[n]
		require.Len(t, stamps, n, "origin %d", i)
		assert.Equal(t, train.Timestamps, stamps[:train.Len()], "origin %d", i)
		assert.Equal(t, test.Timestamps[:i-1], stamps[train.Len():], "origin %d", i)
	}
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	train := seq(1, 8)
	test := seq(100, 6)
	trainCopy := train.Copy()
	testCopy := test.Copy()

	_, err := evaluate(t, newFakeBackend(), Config{Horizon: 3, Mode: RecomputeModel}, train, test)
	require.NoError(t, err)
	assert.Equal(t, trainCopy, train)
	assert.Equal(t, testCopy, test)
}

func TestEvaluateHorizonTooLong(t *testing.T) {
	backend := newFakeBackend()
	_, err := evaluate(t, backend, Config{Horizon: 7, Mode: ReestimateOnly}, seq(1, 10), seq(11, 6))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, backend.fits())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero horizon", Config{Horizon: 0, Mode: ReestimateOnly}},
		{"missing mode", Config{Horizon: 1}},
		{"negative workers", Config{Horizon: 1, Mode: RecomputeModel, Workers: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(newFakeBackend(), tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(nil, Config{Horizon: 1, Mode: ReestimateOnly})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEvaluateInvalidInputs(t *testing.T) {
	e, err := New(newFakeBackend(), Config{Horizon: 2, Mode: ReestimateOnly})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Evaluate(ctx, nil, seq(1, 5), seq(6, 5))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = e.Evaluate(ctx, initialModel(), timeseries.New(nil), seq(6, 5))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = e.Evaluate(ctx, initialModel(), seq(1, 5), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEvaluateUnsupportedMode(t *testing.T) {
	for _, mode := range []Mode{ReestimateOnly, RecomputeModel} {
		t.Run(mode.String(), func(t *testing.T) {
			_, err := evaluate(t, fitOnly{}, Config{Horizon: 1, Mode: mode}, seq(1, 5), seq(6, 3))
			assert.ErrorIs(t, err, ErrUnsupportedMode)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEvaluateFitError(t *testing.T) {
	for _, workers := range []int{0, 4} {
		backend := newFakeBackend()
		backend.failAt = 10 + 3

		res, err := evaluate(t, backend, Config{Horizon: 2, Mode: ReestimateOnly, Workers: workers}, seq(1, 10), seq(11, 8))
		require.Error(t, err)
		assert.Nil(t, res)

		var fe *FitError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 4, fe.Origin)
		assert.Equal(t, 13, fe.WindowLen)
		assert.ErrorIs(t, err, errBoom)
	}
}

func TestEvaluateOrderChanged(t *testing.T) {
	backend := newFakeBackend()
	backend.changeOrder = true

	_, err := evaluate(t, backend, Config{Horizon: 2, Mode: ReestimateOnly}, seq(1, 10), seq(11, 4))
	assert.ErrorIs(t, err, ErrOrderChanged)

	var fe *FitError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Origin)
}

func TestEvaluateBadForecast(t *testing.T) {
	backend := newFakeBackend()
	backend.short = true

	_, err := evaluate(t, backend, Config{Horizon: 3, Mode: RecomputeModel}, seq(1, 10), seq(11, 4))
	assert.ErrorIs(t, err, ErrBadForecast)
	assert.ErrorIs(t, err, forecast.ErrBatchLength)
}

func TestEvaluateRecomputeRecordsOrders(t *testing.T) {
	res, err := evaluate(t, newFakeBackend(), Config{Horizon: 1, Mode: RecomputeModel}, seq(1, 9), seq(10, 4))
	require.NoError(t, err)

	want := []forecast.Order{{P: 0}, {P: 1}, {P: 2}, {P: 0}}
	assert.Equal(t, want, res.Orders)
	assert.Equal(t, RecomputeModel, res.Mode)
}

func TestEvaluateDeterministic(t *testing.T) {
	train := seq(1, 30)
	test := seq(31, 20)

	base, err := evaluate(t, newFakeBackend(), Config{Horizon: 4, Mode: RecomputeModel}, train, test)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 8} {
		res, err := evaluate(t, newFakeBackend(), Config{Horizon: 4, Mode: RecomputeModel, Workers: workers}, train, test)
		require.NoError(t, err)
		assert.True(t, mat.Equal(base.Predictions, res.Predictions), "workers=%d", workers)
		assert.True(t, mat.Equal(base.Lower, res.Lower), "workers=%d", workers)
		assert.True(t, mat.Equal(base.Upper, res.Upper), "workers=%d", workers)
		assert.Equal(t, base.Orders, res.Orders)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	for _, workers := range []int{0, 3} {
		e, err := New(newFakeBackend(), Config{Horizon: 1, Mode: ReestimateOnly, Workers: workers})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = e.Evaluate(ctx, initialModel(), seq(1, 5), seq(6, 5))
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestPackageEvaluate(t *testing.T) {
	res, err := Evaluate(context.Background(), newFakeBackend(), initialModel(), 2, seq(1, 5), seq(6, 4), ReestimateOnly)
	require.NoError(t, err)
	rows, cols := res.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	_, err = Evaluate(context.Background(), newFakeBackend(), initialModel(), 5, seq(1, 5), seq(6, 4), ReestimateOnly)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{Horizon: 2, Mode: ReestimateOnly}

	e, err := New(newFakeBackend(), cfg, WithRegisterer(reg))
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), initialModel(), seq(1, 10), seq(11, 6))
	require.NoError(t, err)

	assert.Equal(t, 5.0, testutil.ToFloat64(e.metrics.refits.WithLabelValues("reestimate_only")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.metrics.failures.WithLabelValues("reestimate_only")))
	assert.Equal(t, 5.0, testutil.ToFloat64(e.metrics.origins))

	// A second evaluator on the same registry shares the collectors.
	failing := newFakeBackend()
	failing.failAt = 11
	e2, err := New(failing, cfg, WithRegisterer(reg))
	require.NoError(t, err)
	_, err = e2.Evaluate(context.Background(), initialModel(), seq(1, 10), seq(11, 6))
	require.Error(t, err)

	assert.Equal(t, 7.0, testutil.ToFloat64(e.metrics.refits.WithLabelValues("reestimate_only")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.failures.WithLabelValues("reestimate_only")))
	assert.Equal(t, 4, testutil.CollectAndCount(reg))
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := evaluate(t, newFakeBackend(), Config{Horizon: 2, Mode: ReestimateOnly}, seq(1, 10), seq(11, 5), WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("rolling evaluation started").Len())
	assert.Equal(t, 1, logs.FilterMessage("rolling evaluation finished").Len())
	assert.Equal(t, 4, logs.FilterMessage("origin forecast").Len())

	started := logs.FilterMessage("rolling evaluation started").All()[0]
	assert.Equal(t, int64(4), started.ContextMap()["origins"])
	assert.Equal(t, "reestimate_only", started.ContextMap()["mode"])
}

func TestEvaluateWithARIMABackend(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 90)
	level := 50.0
	for i := range values {
		level += 0.3 + rng.NormFloat64()
		values[i] = level + 5*math.Sin(2*math.Pi*float64(i)/12)
	}
	train, test, err := timeseries.New(values).SplitAt(80)
	require.NoError(t, err)

	backend := forecast.NewARIMABackend(nil)
	model, err := backend.Reestimate(forecast.Order{P: 1, D: 1, Q: 0}, train)
	require.NoError(t, err)

	seqRes, err := Evaluate(context.Background(), backend, model, 3, train, test, ReestimateOnly)
	require.NoError(t, err)
	e, err := New(backend, Config{Horizon: 3, Mode: ReestimateOnly, Workers: 3})
	require.NoError(t, err)
	parRes, err := e.Evaluate(context.Background(), model, train, test)
	require.NoError(t, err)

	rows, cols := parRes.Dims()
	assert.Equal(t, 8, rows)
	assert.Equal(t, 3, cols)
	assert.True(t, mat.Equal(seqRes.Predictions, parRes.Predictions))

	for i := 0; i < rows; i++ {
		assert.Equal(t, model.Order(), parRes.Orders[i])
		row := parRes.Row(i)
		for h := 0; h < cols; h++ {
			assert.Less(t, row.Lower[h], row.Mean[h])
			assert.Greater(t, row.Upper[h], row.Mean[h])
		}
	}
}

func TestEvaluateMutatingLaterTestValues(t *testing.T) {
	train := seq(1, 10)
	test := seq(11, 8)
	cfg := Config{Horizon: 2, Mode: ReestimateOnly}

	base, err := evaluate(t, newFakeBackend(), cfg, train, test)
	require.NoError(t, err)

	// Row i (1-based) may only depend on test[0:i-1].
	const k = 4
	changed := test.Copy()
	for j := k; j < changed.Len(); j++ {
		changed.Values[j] = -1000
	}
	res, err := evaluate(t, newFakeBackend(), cfg, train, changed)
	require.NoError(t, err)

	for i := 1; i <= k+1; i++ {
		assert.Equal(t, base.Row(i-1), res.Row(i-1), "origin %d", i)
	}
	assert.NotEqual(t, base.Row(k+1), res.Row(k+1))
}
