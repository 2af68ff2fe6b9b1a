package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sartorproj/rollforecast/forecast"
	"github.com/sartorproj/rollforecast/timeseries"
)

func newFitCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the initial model and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			train, test, err := a.loadSplit()
			if err != nil {
				return err
			}
			series := train
			if full {
				series = train.Concat(test)
			}

			model, err := a.initialModel(a.backend(), series)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), model, series)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "fit on training and test data together")
	return cmd
}

func printSummary(out io.Writer, model forecast.Model, series *timeseries.Series) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Model:\t%s\n", model.Order())
	fmt.Fprintf(w, "Observations:\t%d\n", series.Len())

	if s, ok := model.(forecast.Summarizer); ok {
		sum := s.Summary()
		fmt.Fprintf(w, "Log likelihood:\t%.4f\n", sum.LogLik)
		fmt.Fprintf(w, "AIC:\t%.4f\n", sum.AIC)
		fmt.Fprintf(w, "AICc:\t%.4f\n", sum.AICc)
		fmt.Fprintf(w, "BIC:\t%.4f\n", sum.BIC)
		fmt.Fprintf(w, "Sigma^2:\t%.4f\n", sum.Variance)
		fmt.Fprintf(w, "Intercept:\t%.4f\n", sum.Intercept)
		if lb := sum.LjungBox; lb != nil {
			verdict := "residual autocorrelation"
			if lb.WhiteNoise(0.05) {
				verdict = "white noise"
			}
			fmt.Fprintf(w, "Ljung-Box Q(%d):\t%.4f (p=%.4f, %s)\n", lb.Lags, lb.Statistic, lb.PValue, verdict)
		}
	}
	return w.Flush()
}
