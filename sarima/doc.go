// Package sarima implements Seasonal ARIMA (SARIMA) models.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model adds seasonal AR, differencing and MA terms
// at multiples of the period m to the non-seasonal ARIMA(p,d,q) structure.
// Seasonal terms are additive in the lag operator, so an SAR(1) term at m=12
// contributes Phi*B^12 next to the regular phi_i*B^i terms.
//
// # Basic Usage
//
//	// SARIMA(1,0,0)(1,1,0)[12] for monthly data
//	model := sarima.New(1, 0, 0, 1, 1, 0, 12)
//	if err := model.Fit(series); err != nil {
//	    return err
//	}
//	mean, lower, upper, err := model.PredictWithInterval(24, 0.95)
//
// Differencing is applied regular first, then seasonal, and undone exactly in
// reverse when forecasting.
//
// # Common Models
//
//	// Airline model
//	model := sarima.New(0, 1, 1, 0, 1, 1, 12)
//
// Errors are the arima package sentinels re-exported here, plus
// ErrInvalidPeriod for seasonal terms without a usable period.
package sarima
