package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/rollforecast/timeseries"
)

// Unit-root tests accepted by NDiffs.
const (
	UnitRootKPSS = "kpss"
	UnitRootADF  = "adf"
	UnitRootPP   = "pp"
)

// seasonalStrengthThreshold is the F_S value above which a seasonal
// difference is suggested.
const seasonalStrengthThreshold = 0.64

// NDiffs determines the number of first differences required for stationarity.
// maxD <= 0 defaults to 2. testType is one of UnitRootKPSS (default), UnitRootADF or
// UnitRootPP. With KPSS a series is treated as stationary when either KPSS or ADF
// accepts it, which keeps trending-but-mean-reverting series from being
// differenced twice.
func NDiffs(series *timeseries.Series, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}
	if testType == "" {
		testType = UnitRootKPSS
	}

	current := series
	for d := 0; d < maxD; d++ {
		if isStationary(current, testType) {
			return d
		}

		current = current.Diff()
		if current.Len() < 10 {
			return d
		}
	}

	return maxD
}

func isStationary(series *timeseries.Series, testType string) bool {
	switch testType {
	case UnitRootADF:
		r := ADF(series, 0)
		return r != nil && r.IsStationary
	case UnitRootPP:
		r := PhillipsPerron(series, 0)
		return r != nil && r.IsStationary
	default:
		if r := KPSS(series, "c", 0); r != nil && r.IsStationary {
			return true
		}
		r := ADF(series, 0)
		return r != nil && r.IsStationary
	}
}

// NSDiffs determines the number of seasonal differences required using the
// seasonal strength measure F_S. maxD <= 0 defaults to 1.
func NSDiffs(series *timeseries.Series, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < seasonalStrengthThreshold {
			return d
		}

		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d + 1
		}
	}

	return maxD
}

// SeasonalStrength returns F_S = max(0, 1 - Var(R)/Var(S+R)) from a classical
// additive decomposition.
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	decomp := Decompose(series, period, Additive)
	if decomp == nil {
		return 0
	}

	resid := decomp.Residual.Values
	seasonal := decomp.Seasonal.Values
	sr := make([]float64, len(resid))
	for i := range sr {
		sr[i] = seasonal[i] + resid[i]
	}

	varSR := nanVariance(sr)
	if varSR == 0 {
		return 0
	}

	return math.Max(0, 1-nanVariance(resid)/varSR)
}

// nanVariance is the sample variance of the non-NaN entries of data.
func nanVariance(data []float64) float64 {
	valid := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return 0
	}
	return stat.Variance(valid, nil)
}

// Integrate undoes differencing of forecasts. history is the undifferenced
// series the model was fitted on and lags lists the differencing lags in the
// order they were applied (1 for a regular difference, m for a seasonal one).
// Each level is restored from the tail of the matching differenced history,
// so the result is exact for any number of differences.
func Integrate(forecasts, history []float64, lags []int) []float64 {
	levels := make([][]float64, len(lags)+1)
	levels[0] = history
	for k, lag := range lags {
		prev := levels[k]
		if len(prev) < lag {
			levels[k+1] = nil
			continue
		}
		next := make([]float64, len(prev)-lag)
		for i := range next {
			next[i] = prev[i+lag] - prev[i]
		}
		levels[k+1] = next
	}

	out := append([]float64(nil), forecasts...)
	for k := len(lags) - 1; k >= 0; k-- {
		lag := lags[k]
		base := levels[k]
		ext := make([]float64, len(base), len(base)+len(out))
		copy(ext, base)
		for j, f := range out {
			prev := 0.0
			if idx := len(base) + j - lag; idx >= 0 {
				prev = ext[idx]
			}
			ext = append(ext, f+prev)
		}
		out = ext[len(base):]
	}
	return out
}

// InformationCriteria holds the likelihood-based model selection criteria.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates AIC, AICc and BIC from a log-likelihood, the number
// of observations and the number of estimated parameters.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	return &InformationCriteria{
		AIC:    aic,
		AICc:   AICc(aic, nObs, nParams),
		BIC:    -2*logLik + k*math.Log(n),
		LogLik: logLik,
	}
}

// AICc applies the small-sample correction 2k(k+1)/(n-k-1) to aic.
func AICc(aic float64, nObs int, nParams int) float64 {
	k := float64(nParams)
	n := float64(nObs)

	if n-k-1 <= 0 {
		return math.Inf(1)
	}
	return aic + 2*k*(k+1)/(n-k-1)
}
