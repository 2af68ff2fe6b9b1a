// Package timeseries provides the Series type and window operations used by
// the rolling evaluator.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epoch is the first timestamp assigned by New.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrLengthMismatch is returned when timestamps and values differ in length.
	ErrLengthMismatch = errors.New("timestamps and values must have the same length")
	// ErrOutOfRange is returned for split points outside the series.
	ErrOutOfRange = errors.New("index out of range")
)

// Series is an ordered sequence of observations with a date index.
// Operations never modify the receiver; they return new series backed by
// fresh arrays.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a monthly series starting at Epoch.
func New(values []float64) *Series {
	return NewMonthly(Epoch, values)
}

// NewMonthly creates a series with one observation per calendar month
// beginning at start.
func NewMonthly(start time.Time, values []float64) *Series {
	return &Series{
		Timestamps: monthlyIndex(start, len(values)),
		Values:     values,
	}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, ErrLengthMismatch
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

func monthlyIndex(start time.Time, n int) []time.Time {
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = start.AddDate(0, i, 0)
	}
	return ts
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// hasIndex reports whether every value has a timestamp.
func (s *Series) hasIndex() bool {
	return len(s.Timestamps) == len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// Diff calculates the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

// DiffN applies first differencing n times.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 {
		return s.Copy()
	}
	out := s
	for i := 0; i < n; i++ {
		out = out.Diff()
	}
	return out
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_seasonal_diff")
}

func (s *Series) lagDiff(lag int, suffix string) *Series {
	if lag <= 0 || len(s.Values) <= lag {
		return &Series{Values: []float64{}, Name: s.Name + suffix}
	}

	result := make([]float64, len(s.Values)-lag)
	for i := lag; i < len(s.Values); i++ {
		result[i-lag] = s.Values[i] - s.Values[i-lag]
	}

	var timestamps []time.Time
	if s.hasIndex() {
		timestamps = make([]time.Time, len(result))
		copy(timestamps, s.Timestamps[lag:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + suffix,
	}
}

// Slice returns a copy of the observations in [start, end).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		empty := &Series{Values: []float64{}, Name: s.Name}
		if s.hasIndex() {
			empty.Timestamps = []time.Time{}
		}
		return empty
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	var timestamps []time.Time
	if s.hasIndex() {
		timestamps = make([]time.Time, len(values))
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Head returns a copy of the first n observations.
func (s *Series) Head(n int) *Series {
	return s.Slice(0, n)
}

// Concat returns a new series holding the receiver followed by other.
// The date index is kept only when both inputs carry one.
func (s *Series) Concat(other *Series) *Series {
	values := make([]float64, 0, s.Len()+other.Len())
	values = append(values, s.Values...)
	values = append(values, other.Values...)

	var timestamps []time.Time
	if s.hasIndex() && other.hasIndex() {
		timestamps = make([]time.Time, 0, len(values))
		timestamps = append(timestamps, s.Timestamps...)
		timestamps = append(timestamps, other.Timestamps...)
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// SplitAt splits the series into the first n observations and the rest.
func (s *Series) SplitAt(n int) (head, tail *Series, err error) {
	if n < 0 || n > s.Len() {
		return nil, nil, fmt.Errorf("split at %d of %d: %w", n, s.Len(), ErrOutOfRange)
	}
	return s.Slice(0, n), s.Slice(n, s.Len()), nil
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	var timestamps []time.Time
	if s.Timestamps != nil {
		timestamps = make([]time.Time, len(s.Timestamps))
		copy(timestamps, s.Timestamps)
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Finite reports whether every observation is a finite number.
func (s *Series) Finite() bool {
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
