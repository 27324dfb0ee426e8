package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/syncbench/internal/config"
	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/harness"
	"github.com/Iron-Ham/syncbench/internal/logging"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the counter experiment once",
	Long: `Run spawns the configured number of workers under one strategy and
reports the observed total against workers × reps.

The command exits non-zero when a strategy that promises a correct total
reports anything but a match. Mismatches of the unsynchronized strategy and
the timeout of the deadlock strategy are expected and exit zero.

With --watch, the run is repeated every time the config file changes until
interrupted. Flags given on the command line take precedence over the file.`,
	Example: `  syncbench run
  syncbench run --strategy unsynchronized --workers 8 --reps 100000
  syncbench run --strategy deadlock --timeout 2s
  syncbench run --format json`,
	Args:    cobra.NoArgs,
	PreRunE: bindHarnessFlags,
	RunE:    runRun,
}

var runWatch bool

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.StringP("strategy", "s", "", "synchronization strategy (see 'syncbench strategies')")
	flags.IntP("workers", "w", 0, "number of concurrent workers")
	flags.IntP("reps", "r", 0, "increments per worker")
	flags.Duration("timeout", 0, "how long to wait for workers before suspecting a deadlock")
	flags.Bool("batch", false, "apply each worker's increments in a single call")
	flags.BoolVar(&runWatch, "watch", false, "re-run whenever the config file changes")
}

// harnessFlags maps config keys to the shape flags shared by run and bench.
var harnessFlags = map[string]string{
	"harness.strategy":     "strategy",
	"harness.workers":      "workers",
	"harness.repetitions":  "reps",
	"harness.wait_timeout": "timeout",
	"harness.batch":        "batch",
	"bench.strategies":     "strategies",
	"bench.trials":         "trials",
}

// bindHarnessFlags binds the executing command's shape flags to their config
// keys. Binding happens at run time because run and bench define flags with
// the same keys and viper keeps one binding per key.
func bindHarnessFlags(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	for key, name := range harnessFlags {
		if f := flags.Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Close() }()

	if runWatch {
		return watchRuns(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
	}

	res, err := runOnce(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if err := newPrinter(cmd.OutOrStdout(), cfg.Output).result(res); err != nil {
		return err
	}
	if res.Violates() {
		return fmt.Errorf("%s did not hold its guarantee: %w", res.Strategy, res.Err)
	}
	return nil
}

// harnessConfig converts the file/flag configuration into a harness config.
func harnessConfig(cfg *config.Config) (harness.Config, error) {
	kind, err := strategy.ParseKind(cfg.Harness.Strategy)
	if err != nil {
		return harness.Config{}, err
	}
	return harness.Config{
		Strategy:    kind,
		Workers:     cfg.Harness.Workers,
		Repetitions: cfg.Harness.Repetitions,
		WaitTimeout: cfg.Harness.WaitTimeout,
		Batch:       cfg.Harness.Batch,
	}, nil
}

func runOnce(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*harness.Result, error) {
	hcfg, err := harnessConfig(cfg)
	if err != nil {
		return nil, err
	}
	h, err := harness.New(hcfg, harness.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return h.Run(ctx)
}

// watchRuns runs once, then again after every write to the config file, until
// ctx is canceled. Invalid edits are reported and skipped; the previous run
// stays on screen.
func watchRuns(ctx context.Context, w io.Writer, cfg *config.Config, logger *logging.Logger) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		return errors.NewValidationError("--watch needs a config file; create one with 'syncbench config init'").
			WithField("config")
	}

	reloads := make(chan configReload, 1)
	viper.OnConfigChange(reloadOnChange(reloads))
	viper.WatchConfig()
	logger.Info("watching config file", "path", path)

	for {
		res, err := runOnce(ctx, cfg, logger)
		if err != nil {
			if errors.Is(err, errors.ErrCanceled) {
				return nil
			}
			fmt.Fprintf(w, "run failed: %v\n", err)
		} else if err := newPrinter(w, cfg.Output).result(res); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nwatching %s for changes (Ctrl+C to stop)\n\n", path)

		for {
			var next configReload
			select {
			case <-ctx.Done():
				return nil
			case next = <-reloads:
			}
			if next.err != nil {
				fmt.Fprintf(w, "%v\n\n", next.err)
				logger.Warn("ignoring invalid config change", "path", path, "error", next.err.Error())
				continue
			}
			cfg = next.cfg
			break
		}
	}
}

// configReload is the outcome of re-reading the config file after a change.
type configReload struct {
	cfg *config.Config
	err error
}

// reloadOnChange returns a viper change callback that loads the new
// configuration on viper's watch goroutine, so viper is never read
// concurrently with its own re-read. Only the latest reload is kept.
func reloadOnChange(reloads chan configReload) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := loadConfig()
		select {
		case <-reloads:
		default:
		}
		reloads <- configReload{cfg: cfg, err: err}
	}
}
