// Package autoarima implements automatic ARIMA model selection.
//
// AutoARIMA chooses the differencing orders with unit-root and seasonal
// strength tests, then searches AR and MA orders, keeping the candidate with
// the lowest information criterion.
//
// # Basic Usage
//
//	result, err := autoarima.AutoARIMA(series, autoarima.DefaultConfig())
//	if errors.Is(err, autoarima.ErrNoModel) {
//	    // the series is too short for every candidate
//	}
//	fmt.Println(result.Order(), result.AIC, result.ModelsEvaluated)
//
//	mean, lower, upper, err := result.PredictWithInterval(12, 0.95)
//
// # Seasonal Model Selection
//
//	config := autoarima.DefaultConfig()
//	config.Seasonal = true
//	config.SeasonalM = 12
//	result, err := autoarima.AutoARIMA(series, config)
//
// # Search Methods
//
//   - Stepwise (default): starts from a handful of small orders and the order
//     suggested by the ACF/PACF cut-offs, then walks to better neighbours.
//   - Grid: fits every order within the bounds (Stepwise = false).
//
// Criterion selects "aic", "aicc" or "bic"; StationTest selects "kpss",
// "adf" or "pp". Set Config.Logger to trace every candidate at debug level.
package autoarima
