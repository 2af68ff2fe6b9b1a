package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/timeseries"
)

// loadSplit reads the configured series and splits it into train and test.
func (a *app) loadSplit() (train, test *timeseries.Series, err error) {
	series, err := timeseries.LoadCSV(a.cfg.Data.Path, a.cfg.CSVOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", a.cfg.Data.Path, err)
	}

	train, test, err = series.SplitAt(a.cfg.Split.TrainSize)
	if err != nil {
		return nil, nil, fmt.Errorf("split series of %d observations: %w", series.Len(), err)
	}
	if size := a.cfg.Split.TestSize; size > 0 {
		if size > test.Len() {
			return nil, nil, fmt.Errorf("test size %d exceeds the %d observations after training: %w",
				size, test.Len(), timeseries.ErrOutOfRange)
		}
		test = test.Head(size)
	}

	a.log.Info("series loaded",
		zap.String("path", a.cfg.Data.Path),
		zap.Int("observations", series.Len()),
		zap.Int("train", train.Len()),
		zap.Int("test", test.Len()),
	)
	return train, test, nil
}

func (a *app) backend() *forecast.ARIMABackend {
	auto := a.cfg.AutoARIMA()
	auto.Logger = a.log.Named("autoarima")
	return &forecast.ARIMABackend{Confidence: a.cfg.Model.Confidence, Auto: auto}
}

// initialModel selects an order on series, or fits the configured order
// when automatic selection is off.
func (a *app) initialModel(backend *forecast.ARIMABackend, series *timeseries.Series) (forecast.Model, error) {
	if a.cfg.Model.Auto {
		model, err := backend.Fit(series)
		if err != nil {
			return nil, fmt.Errorf("select initial model: %w", err)
		}
		return model, nil
	}

	model, err := backend.Reestimate(a.cfg.Model.Order, series)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", a.cfg.Model.Order, err)
	}
	return model, nil
}
