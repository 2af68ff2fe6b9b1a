package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/rollforecast/timeseries"
)

// Decomposition models.
const (
	Additive       = "additive"
	Multiplicative = "multiplicative"
)

// DecompositionResult represents the classical decomposition of a series.
// Trend and Residual hold NaN where the centred moving average is undefined.
type DecompositionResult struct {
	Original *timeseries.Series
	Trend    *timeseries.Series
	Seasonal *timeseries.Series
	Residual *timeseries.Series
	Period   int
	Type     string
}

// Decompose performs classical seasonal decomposition with a centred moving
// average trend. Unknown types fall back to Additive. Returns nil when the
// series is shorter than two periods.
func Decompose(series *timeseries.Series, period int, decompositionType string) *DecompositionResult {
	n := series.Len()
	if period < 2 || n < 2*period {
		return nil
	}
	if decompositionType != Multiplicative {
		decompositionType = Additive
	}
	mult := decompositionType == Multiplicative

	trend := centredMovingAverage(series.Values, period)

	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range series.Values {
		if math.IsNaN(trend[i]) || (mult && trend[i] == 0) {
			continue
		}
		if mult {
			pattern[i%period] += v / trend[i]
		} else {
			pattern[i%period] += v - trend[i]
		}
		counts[i%period]++
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
	}

	center := floats.Sum(pattern) / float64(period)
	for i := range pattern {
		if mult {
			pattern[i] /= center
		} else {
			pattern[i] -= center
		}
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i, v := range series.Values {
		seasonal[i] = pattern[i%period]
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case mult:
			if trend[i] == 0 || seasonal[i] == 0 {
				residual[i] = math.NaN()
			} else {
				residual[i] = v / (trend[i] * seasonal[i])
			}
		default:
			residual[i] = v - trend[i] - seasonal[i]
		}
	}

	component := func(values []float64, name string) *timeseries.Series {
		return &timeseries.Series{Values: values, Timestamps: series.Timestamps, Name: name}
	}

	return &DecompositionResult{
		Original: series,
		Trend:    component(trend, "trend"),
		Seasonal: component(seasonal, "seasonal"),
		Residual: component(residual, "residual"),
		Period:   period,
		Type:     decompositionType,
	}
}

// centredMovingAverage uses a 2xm MA for even periods and an m MA for odd ones.
func centredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		var sum float64
		if period%2 == 0 {
			sum = 0.5*values[i-half] + 0.5*values[i+half] + floats.Sum(values[i-half+1:i+half])
		} else {
			sum = floats.Sum(values[i-half : i+half+1])
		}
		trend[i] = sum / float64(period)
	}
	return trend
}
