package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sartorproj/rollforecast/accuracy"
	"github.com/sartorproj/rollforecast/report"
	"github.com/sartorproj/rollforecast/rolling"
)

func newEvaluateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a rolling-origin evaluation and write reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEvaluate(cmd)
		},
	}

	flags := cmd.Flags()
	flags.Int("test-size", 0, "observations in the test part (0: the rest)")
	flags.Int("horizon", 0, "forecast horizon")
	flags.String("mode", "", "refit mode: reestimate_only or recompute_model")
	flags.Int("workers", 0, "concurrent refits")
	flags.String("output-dir", "", "report directory")
	flags.StringSlice("format", nil, "report formats: json, csv, yaml")
	flags.Bool("metrics", false, "dump Prometheus metrics after the run")
	flags.String("metrics-out", "", "write metrics to this file instead of stderr")
	a.bind(flags, map[string]string{
		"split.test_size":    "test-size",
		"evaluation.horizon": "horizon",
		"evaluation.mode":    "mode",
		"evaluation.workers": "workers",
		"output.dir":         "output-dir",
		"output.formats":     "format",
		"metrics.enabled":    "metrics",
		"metrics.out":        "metrics-out",
	})
	return cmd
}

func (a *app) runEvaluate(cmd *cobra.Command) error {
	rc, err := a.cfg.Rolling()
	if err != nil {
		return err
	}
	train, test, err := a.loadSplit()
	if err != nil {
		return err
	}
	if rc.Horizon > test.Len() {
		return fmt.Errorf("%w: horizon %d exceeds test length %d", rolling.ErrInvalidConfig, rc.Horizon, test.Len())
	}

	backend := a.backend()
	model, err := a.initialModel(backend, train)
	if err != nil {
		return err
	}
	a.log.Info("initial model", zap.Stringer("order", model.Order()))
	opts := []rolling.Option{rolling.WithLogger(a.log)}
	var reg *prometheus.Registry
	if a.cfg.Metrics.Enabled || a.cfg.Metrics.Out != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, rolling.WithRegisterer(reg))
	}

	ev, err := rolling.New(backend, rc, opts...)
	if err != nil {
		return err
	}
	res, err := ev.Evaluate(cmd.Context(), model, train, test)
	if err != nil {
		return err
	}

	scores, err := accuracy.Score(res, test)
	if err != nil {
		return err
	}
	run := &report.Run{
		InitialOrder: model.Order(),
		TrainLen:     train.Len(),
		Result:       res,
		Scores:       scores,
		Config:       a.cfg,
	}
	paths, err := report.WriteFiles(a.cfg.Output.Dir, run, test, a.cfg.Output.Formats)
	if err != nil {
		return err
	}
	for _, p := range paths {
		a.log.Info("report written", zap.String("path", p))
	}

	if err := printScores(cmd.OutOrStdout(), run); err != nil {
		return err
	}
	if reg != nil {
		return a.dumpMetrics(reg, cmd.ErrOrStderr())
	}
	return nil
}

func printScores(out io.Writer, run *report.Run) error {
	n, h := run.Result.Dims()
	fmt.Fprintf(out, "run %s: %s, %d origins x %d steps, initial %s\n",
		run.Result.RunID, run.Result.Mode, n, h, run.InitialOrder)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRMSE\tMAE\tMAPE\tCOVERAGE")
	row := func(label string, m accuracy.Metrics) {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%s\t%.3f\n", label, m.RMSE, m.MAE, percent(m.MAPE), m.Coverage)
	}
	for i, m := range run.Scores.Steps {
		row(fmt.Sprint(i+1), m)
	}
	row("all", run.Scores.Overall)
	return w.Flush()
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v)
}

// dumpMetrics writes the registry in the Prometheus text format.
func (a *app) dumpMetrics(reg *prometheus.Registry, stderr io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	out := stderr
	if path := a.cfg.Metrics.Out; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create metrics file: %w", err)
		}
		defer f.Close()
		out = f
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
