package rolling

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	refits   *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	origins  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		refits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rollforecast_refits_total",
			Help: "Models refitted at a forecast origin.",
		}, []string{"mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rollforecast_refit_failures_total",
			Help: "Refits that failed and aborted an evaluation.",
		}, []string{"mode"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rollforecast_refit_duration_seconds",
			Help:    "Time to refit and forecast at one origin.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		origins: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rollforecast_origins",
			Help: "Forecast origins in the most recent evaluation.",
		}),
	}

	var err error
	if m.refits, err = register(reg, m.refits); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, m.failures); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.origins, err = register(reg, m.origins); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector that is already
// registered so several evaluators can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) setOrigins(n int) {
	if m == nil {
		return
	}
	m.origins.Set(float64(n))
}

func (m *metrics) observe(mode Mode, start time.Time, err error) {
	if m == nil {
		return
	}
	label := mode.String()
	m.refits.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(label).Inc()
	}
}
