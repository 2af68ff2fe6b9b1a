package rolling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/timeseries"
)

// Config controls an evaluation run.
type Config struct {
	// Horizon is H, the number of steps forecast from each origin.
	Horizon int
	Mode    Mode
	// Workers bounds concurrent refits. 0 or 1 runs sequentially.
	Workers int
}

// Validate checks the configuration on its own, without the data.
func (c Config) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon must be at least 1, got %d", ErrInvalidConfig, c.Horizon)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: invalid mode %s", ErrInvalidConfig, c.Mode)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Evaluator runs rolling-origin evaluations against one backend.
type Evaluator struct {
	backend forecast.Backend
	cfg     Config
	log     *zap.Logger
	reg     prometheus.Registerer
	metrics *metrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRegisterer registers the evaluator's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Evaluator) {
		e.reg = reg
	}
}

// New returns an evaluator for backend. The configuration is validated here
// and again, against the data, on every Evaluate call.
func New(backend forecast.Backend, cfg Config, opts ...Option) (*Evaluator, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Evaluator{
		backend: backend,
		cfg:     cfg,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.reg != nil {
		m, err := newMetrics(e.reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		e.metrics = m
	}
	return e, nil
}

// Config returns the evaluator's configuration.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate is a convenience wrapper that builds an Evaluator with default
// options and runs it once.
func Evaluate(ctx context.Context, backend forecast.Backend, model forecast.Model, horizon int, train, test *timeseries.Series, mode Mode) (*Result, error) {
	e, err := New(backend, Config{Horizon: horizon, Mode: mode})
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, model, train, test)
}

// refitFunc produces the model for one window.
type refitFunc func(window *timeseries.Series) (forecast.Model, error)

// Evaluate refits the model at every origin i = 1..N, where N is
// len(test)-H+1, on train followed by the first i-1 test observations, and
// forecasts H steps ahead. Row i-1 of each result matrix holds the forecast
// from origin i.
//
// Any failure at an origin aborts the run with a *FitError and no result.
func (e *Evaluator) Evaluate(ctx context.Context, model forecast.Model, train, test *timeseries.Series) (*Result, error) {
	h := e.cfg.Horizon
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidConfig)
	}
	if train == nil || train.Len() == 0 {
		return nil, fmt.Errorf("%w: empty training series", ErrInvalidConfig)
	}
	if test == nil || test.Len() < h {
		n := 0
		if test != nil {
			n = test.Len()
		}
		return nil, fmt.Errorf("%w: horizon %d exceeds test length %d", ErrInvalidConfig, h, n)
	}

	refit, err := e.refitter(model)
	if err != nil {
		return nil, err
	}

	n := test.Len() - h + 1
	runID := uuid.NewString()
	log := e.log.With(zap.String("run_id", runID))
	log.Info("rolling evaluation started",
		zap.Stringer("mode", e.cfg.Mode),
		zap.Stringer("order", model.Order()),
		zap.Int("origins", n),
		zap.Int("horizon", h),
		zap.Int("train_len", train.Len()),
		zap.Int("workers", e.cfg.Workers),
	)
	e.metrics.setOrigins(n)

	start := time.Now()
	batches := make([]forecast.Batch, n)
	orders := make([]forecast.Order, n)
	origin := func(i int) error {
		b, o, err := e.forecastOrigin(refit, train, test, i, log)
		if err != nil {
			return err
		}
		batches[i] = b
		orders[i] = o
		return nil
	}

	if e.cfg.Workers > 1 {
		err = e.runParallel(ctx, n, origin)
	} else {
		err = runSequential(ctx, n, origin)
	}
	if err != nil {
		log.Info("rolling evaluation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	log.Info("rolling evaluation finished", zap.Int("origins", n), zap.Duration("elapsed", time.Since(start)))
	return newResult(runID, e.cfg.Mode, batches, orders, h), nil
}

// refitter resolves the backend capability the mode needs.
func (e *Evaluator) refitter(model forecast.Model) (refitFunc, error) {
	switch e.cfg.Mode {
	case ReestimateOnly:
		r, ok := e.backend.(forecast.Reestimator)
		if !ok {
			return nil, fmt.Errorf("%w: %T cannot reestimate", ErrUnsupportedMode, e.backend)
		}
		want := model.Order()
		return func(window *timeseries.Series) (forecast.Model, error) {
			m, err := r.Reestimate(want, window)
			if err != nil {
				return nil, err
			}
			if got := m.Order(); got != want {
				return nil, fmt.Errorf("%w: got %s, want %s", ErrOrderChanged, got, want)
			}
			return m, nil
		}, nil
	case RecomputeModel:
		s, ok := e.backend.(forecast.Selector)
		if !ok {
			return nil, fmt.Errorf("%w: %T cannot select a model", ErrUnsupportedMode, e.backend)
		}
		return s.Select, nil
	default:
		return nil, fmt.Errorf("%w: invalid mode %s", ErrInvalidConfig, e.cfg.Mode)
	}
}

// forecastOrigin fits and forecasts at 0-based origin index i.
func (e *Evaluator) forecastOrigin(refit refitFunc, train, test *timeseries.Series, i int, log *zap.Logger) (forecast.Batch, forecast.Order, error) {
	h := e.cfg.Horizon
	window := train.Concat(test.Head(i))
	start := time.Now()

	fail := func(err error) (forecast.Batch, forecast.Order, error) {
		e.metrics.observe(e.cfg.Mode, start, err)
		return forecast.Batch{}, forecast.Order{}, &FitError{Origin: i + 1, WindowLen: window.Len(), Err: err}
	}

	m, err := refit(window)
	if err != nil {
		return fail(err)
	}
	batch, err := m.Forecast(h)
	if err != nil {
		return fail(err)
	}
	if err := batch.Validate(h); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrBadForecast, err))
	}

	e.metrics.observe(e.cfg.Mode, start, nil)
	log.Debug("origin forecast",
		zap.Int("origin", i+1),
		zap.Int("window_len", window.Len()),
		zap.Stringer("order", m.Order()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return batch, m.Order(), nil
}

func runSequential(ctx context.Context, n int, origin func(int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := origin(i); err != nil {
			return err
		}
	}
	return nil
}

// runParallel fans the origins out over a bounded errgroup. The first failure
// cancels origins that have not started yet. When several origins fail, the
// lowest one observed is reported.
func (e *Evaluator) runParallel(ctx context.Context, n int, origin func(int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := origin(i); err != nil {
				errs[i] = err
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for _, err := range errs {
		var fe *FitError
		if errors.As(err, &fe) {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return waitErr
}
