// Package rolling implements rolling-origin evaluation of multi-step
// forecasts.
//
// Given a training series, a test series of length T and a horizon H, the
// evaluator visits N = T-H+1 forecast origins. At origin i it refits the
// model on the training data followed by the first i-1 test observations
// and records an H-step forecast with its prediction interval. The model
// never sees an observation at or after the origin.
//
// Two refit modes are supported:
//
//	ReestimateOnly  keep the model order, re-estimate the coefficients
//	RecomputeModel  rerun full order selection on every window
//
// Basic usage:
//
//	backend := forecast.NewARIMABackend(nil)
//	model, err := backend.Fit(train)
//	if err != nil {
//		log.Fatal(err)
//	}
//	ev, err := rolling.New(backend, rolling.Config{Horizon: 12, Mode: rolling.ReestimateOnly})
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := ev.Evaluate(ctx, model, train, test)
//
// res.Predictions, res.Lower and res.Upper are N x H matrices whose row i-1
// holds the forecast launched from origin i.
package rolling
