package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sartorproj/rollforecast/timeseries"
)

func TestNDiffs(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		testType string
		expected int
	}{
		{"white noise kpss", whiteNoise(300, 11), UnitRootKPSS, 0},
		{"white noise adf", whiteNoise(300, 11), UnitRootADF, 0},
		{"white noise pp", whiteNoise(300, 11), UnitRootPP, 0},
		{"drifting walk kpss", driftingWalk(300, 2, 12), "", 1},
		{"drifting walk adf", driftingWalk(300, 2, 12), UnitRootADF, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NDiffs(timeseries.New(tt.values), 2, tt.testType))
		})
	}
}

func TestNDiffsShortSeries(t *testing.T) {
	assert.Equal(t, 0, NDiffs(timeseries.New([]float64{1, 2, 3, 4, 5}), 0, UnitRootKPSS))
}

func TestNSDiffs(t *testing.T) {
	assert.Equal(t, 1, NSDiffs(timeseries.New(seasonalSeries(120)), 12, 1))
	assert.Equal(t, 0, NSDiffs(timeseries.New(whiteNoise(120, 13)), 12, 1))
	assert.Equal(t, 0, NSDiffs(timeseries.New(seasonalSeries(20)), 12, 1))
	assert.Equal(t, 0, NSDiffs(timeseries.New(seasonalSeries(120)), 1, 1))
}

func TestSeasonalStrength(t *testing.T) {
	strong := SeasonalStrength(timeseries.New(seasonalSeries(120)), 12)
	assert.Greater(t, strong, 0.9)

	weak := SeasonalStrength(timeseries.New(whiteNoise(120, 14)), 12)
	assert.Less(t, weak, seasonalStrengthThreshold)
	assert.GreaterOrEqual(t, weak, 0.0)
}

func TestNaNVariance(t *testing.T) {
	assert.InDelta(t, 1.0, nanVariance([]float64{1, math.NaN(), 2, 3}), 1e-12)
	assert.Zero(t, nanVariance([]float64{math.NaN(), 4}))
}

func TestAICc(t *testing.T) {
	tests := []struct {
		name     string
		aic      float64
		nObs     int
		nParams  int
		expected float64
	}{
		{"large sample", 100, 1000, 3, 100 + 24.0/996},
		{"small sample", 50, 20, 4, 50 + 40.0/15},
		{"too many params", 10, 5, 4, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AICc(tt.aic, tt.nObs, tt.nParams)
			if math.IsInf(tt.expected, 1) {
				assert.True(t, math.IsInf(got, 1))
				return
			}
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestCalculateIC(t *testing.T) {
	ic := CalculateIC(-100, 50, 3)

	assert.InDelta(t, 206, ic.AIC, 1e-12)
	assert.InDelta(t, 206+24.0/46, ic.AICc, 1e-12)
	assert.InDelta(t, 200+3*math.Log(50), ic.BIC, 1e-12)
	assert.Equal(t, -100.0, ic.LogLik)
}
