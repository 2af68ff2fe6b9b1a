// Package timeseries provides time series data structures and utilities.
//
// A Series holds ordered observations and their date index. Series are treated
// as immutable: every operation returns a new series backed by copied arrays,
// so windows built for refitting never alias the caller's data.
//
// # Creating a Series
//
//	values := []float64{58.0, 62.6, 70.0, 55.7}
//	series := timeseries.New(values) // monthly index from timeseries.Epoch
//
//	start := time.Date(1749, time.January, 1, 0, 0, 0, 0, time.UTC)
//	series = timeseries.NewMonthly(start, values)
//
// # Loading the Sunspot Dataset
//
// DefaultCSVOptions matches the monthly sunspot CSV ("Month","Sunspots"):
//
//	series, err := timeseries.LoadCSV("data/monthly-sunspots.csv", nil)
//
// Other layouts are handled by overriding the options:
//
//	opts := &timeseries.CSVOptions{
//	    DateColumn:  "date",
//	    ValueColumn: "value",
//	    DateFormat:  "2006-01-02",
//	    HasHeader:   true,
//	}
//	series, err := timeseries.LoadCSVFromReader(reader, opts)
//
// # Windows
//
// Rolling evaluation grows a fitting window one observation at a time:
//
//	train, test, err := series.SplitAt(1200)
//	window := train.Concat(test.Head(i - 1))
//
// # Transformations
//
//	diff := series.Diff()            // First difference
//	diff2 := series.DiffN(2)         // Second-order difference
//	sdiff := series.SeasonalDiff(12) // Seasonal difference
package timeseries
