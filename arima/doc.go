// Package arima implements non-seasonal ARIMA(p,d,q) models.
//
// An ARIMA(p,d,q) model combines:
//   - AR(p): autoregressive component with p lags
//   - I(d): d regular differences
//   - MA(q): moving average component with q lags
//
// Coefficients are estimated by conditional sum of squares starting from
// Yule-Walker estimates.
//
// # Basic Usage
//
//	model := arima.New(2, 1, 0)
//	if err := model.Fit(series); err != nil {
//	    return err
//	}
//
//	mean, lower, upper, err := model.PredictWithInterval(12, 0.95)
//
// Intervals are symmetric normal intervals built from the psi-weights of the
// model, so they widen with the horizon and grow without bound when d > 0.
//
// # Errors
//
// Fit returns ErrInsufficientData when the series has fewer than p+d+q+10
// observations, ErrInvalidData for NaN or Inf input and ErrNotConverged when
// estimation leaves non-finite parameters. Predict returns ErrNotFitted on an
// unfitted model.
//
// For seasonal data use the sarima package; for automatic order selection use
// autoarima.
package arima
