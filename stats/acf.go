// Package stats provides statistical tests and functions for time series analysis.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/rollforecast/timeseries"
)

// ACF calculates the Autocorrelation Function for the given series.
// Returns ACF values for lags 0 to maxLag, or nil for a constant series.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	x := series.Values
	mean := stat.Mean(x, nil)
	denom := 0.0
	for _, v := range x {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (x[i] - mean) * (x[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}

// PACF calculates the Partial Autocorrelation Function using the Durbin-Levinson
// recursion. Index 0 holds 1; indices 1..maxLag hold the partial autocorrelations.
func PACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	acf := ACF(series, maxLag)
	if acf == nil {
		return nil
	}

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1

	prev := []float64{acf[1]}
	pacf[1] = acf[1]

	for k := 2; k <= maxLag; k++ {
		num := acf[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= prev[j-1] * acf[k-j]
			den -= prev[j-1] * acf[j]
		}
		if den == 0 {
			break
		}

		phiKK := num / den
		pacf[k] = phiKK

		next := make([]float64, k)
		for j := 1; j < k; j++ {
			next[j-1] = prev[j-1] - phiKK*prev[k-j-1]
		}
		next[k-1] = phiKK
		prev = next
	}

	return pacf
}

// ConfidenceBound returns the approximate 95% significance bound for
// autocorrelations of a white-noise series of length n.
func ConfidenceBound(n int) float64 {
	if n <= 0 {
		return math.Inf(1)
	}
	return 1.96 / math.Sqrt(float64(n))
}

// SignificantLags returns the lags (excluding 0) whose absolute value exceeds confBound.
func SignificantLags(values []float64, confBound float64) []int {
	var significant []int
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]) > confBound {
			significant = append(significant, i)
		}
	}
	return significant
}

// LastSignificantLag returns the highest lag in 1..maxLag whose value exceeds
// confBound, or 0 when none does.
func LastSignificantLag(values []float64, confBound float64, maxLag int) int {
	last := 0
	for _, lag := range SignificantLags(values, confBound) {
		if lag <= maxLag {
			last = lag
		}
	}
	return last
}

// YuleWalker estimates AR coefficients from autocorrelations with the
// Levinson-Durbin recursion. acf[0] must be 1.
// Returns nil when acf is shorter than order+1.
func YuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]

	for i := 1; i < order; i++ {
		if v <= 0 {
			break
		}
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
	}

	return phi
}
