// Package stats provides the statistical tests and helpers used to identify
// and diagnose ARIMA models.
//
// # Stationarity Tests
//
//	adf := stats.ADF(series, 0)                // H0: unit root
//	kpss := stats.KPSS(series, "c", 0)         // H0: level stationary
//	pp := stats.PhillipsPerron(series, 0)      // H0: unit root
//
// All three return nil when the series is too short to test.
//
// # Differencing Analysis
//
//	d := stats.NDiffs(series, 2, stats.UnitRootKPSS)
//	sd := stats.NSDiffs(series, 12, 1)
//
// # Autocorrelation
//
//	acf := stats.ACF(series, 20)
//	pacf := stats.PACF(series, 20)
//	bound := stats.ConfidenceBound(series.Len())
//	p := stats.LastSignificantLag(pacf, bound, 5)
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, 10, p+q)
//	if lb.WhiteNoise(0.05) {
//	    // no remaining autocorrelation
//	}
//
// # Forecast Uncertainty
//
// Forecast standard errors come from the psi-weights of the model with its
// differencing folded into the autoregressive side:
//
//	ar := stats.ExpandAR(phi, d, D, m)
//	psi := stats.PsiWeights(ar, theta, h)
//	se := stats.ForecastStdErrors(sigma2, psi)
package stats
