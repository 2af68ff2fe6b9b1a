// Package rollforecast evaluates multi-step time series forecasts by
// rolling the forecast origin through a held-out test period.
//
// At each origin the model is refitted on all data observed so far, either
// re-estimating the coefficients of a fixed ARIMA order or rerunning the
// automatic order search, and an H-step forecast with its prediction
// interval is recorded. The forecasts are then scored against the observed
// values.
//
// # Quick Start
//
//	series, _ := timeseries.LoadCSV("monthly-sunspots.csv", timeseries.DefaultCSVOptions())
//	train, test, _ := series.SplitAt(1200)
//
//	backend := forecast.NewARIMABackend(autoarima.DefaultConfig())
//	model, _ := backend.Fit(train)
//
//	res, _ := rolling.Evaluate(ctx, backend, model, 120, train, test, rolling.ReestimateOnly)
//	scores, _ := accuracy.Score(res, test)
//
// # Packages
//
//   - timeseries: series type, windows, differencing and CSV loading
//   - stats: autocorrelation, stationarity tests, differencing order,
//     decomposition, Ljung-Box and forecast variance
//   - arima, sarima: fixed-order models with prediction intervals
//   - autoarima: automatic order selection
//   - forecast: backend capability interfaces and the ARIMA backend
//   - rolling: the rolling-origin evaluator
//   - accuracy: per-step error metrics and interval coverage
//   - report: JSON, CSV and YAML output
//   - config: run configuration
//
// The rollforecast command in cmd/rollforecast wires these together.
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package rollforecast
