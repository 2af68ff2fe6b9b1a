package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/rollforecast/timeseries"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// WhiteNoise reports whether the no-autocorrelation null survives at level alpha.
func (r *LjungBoxResult) WhiteNoise(alpha float64) bool {
	return r != nil && r.PValue > alpha
}

// LjungBox performs the Ljung-Box portmanteau test on model residuals.
// fitdf is the number of estimated ARMA coefficients and is subtracted from
// the degrees of freedom. Returns nil for fewer than 10 residuals.
func LjungBox(series *timeseries.Series, lags, fitdf int) *LjungBoxResult {
	n := series.Len()
	if n < 10 || lags < 1 {
		return nil
	}
	if lags >= n {
		lags = n - 1
	}

	acf := ACF(series, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k] / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi := distuv.ChiSquared{K: float64(dof)}
	return &LjungBoxResult{
		Statistic: q,
		PValue:    chi.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}
}
