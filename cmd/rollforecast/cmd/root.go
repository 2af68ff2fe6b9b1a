package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sartorproj/rollforecast/config"
	"github.com/sartorproj/rollforecast/internal/logging"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "rollforecast",
		Short: "Rolling-origin forecast evaluation",
		Long: `Evaluates multi-step ARIMA forecasts by refitting the model at every
forecast origin of a held-out test period and scoring the results.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("log-dev", false, "human-readable development logs")
	flags.String("data", "", "input CSV file")
	flags.Int("train-size", 0, "observations in the training part")
	a.bind(flags, map[string]string{
		"log.level":        "log-level",
		"log.development":  "log-dev",
		"data.path":        "data",
		"split.train_size": "train-size",
	})

	root.AddCommand(newEvaluateCmd(a), newFitCmd(a), newConfigCmd(a))
	return root
}

// bind maps config keys to flags so a flag set on the command line wins
// over the file and the environment.
func (a *app) bind(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
