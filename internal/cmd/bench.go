package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/syncbench/internal/bench"
	"github.com/Iron-Ham/syncbench/internal/config"
	"github.com/Iron-Ham/syncbench/internal/event"
	"github.com/Iron-Ham/syncbench/internal/logging"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare strategies over repeated trials",
	Long: `Bench runs every selected strategy several times with the same shape and
prints a comparison table: how often each matched, the spread of observed
totals and the mean fraction of increments lost.

Strategies are selected with names, aliases or glob patterns. The deadlock
strategy is never matched by a wildcard because every trial waits out the
full timeout; name it explicitly to include it.`,
	Example: `  syncbench bench
  syncbench bench --strategies '*-lock,unsynchronized' --trials 20
  syncbench bench --workers 8 --reps 100000 --format json`,
	Args:    cobra.NoArgs,
	PreRunE: bindHarnessFlags,
	RunE:    runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	flags := benchCmd.Flags()
	flags.StringSlice("strategies", nil, "strategy names or glob patterns (default all but deadlock)")
	flags.IntP("trials", "n", 0, "runs per strategy")
	flags.IntP("workers", "w", 0, "number of concurrent workers")
	flags.IntP("reps", "r", 0, "increments per worker")
	flags.Duration("timeout", 0, "how long to wait for workers before suspecting a deadlock")
	flags.Bool("batch", false, "apply each worker's increments in a single call")
}

// benchSuite builds the suite described by cfg.
func benchSuite(cfg *config.Config) (bench.Suite, error) {
	kinds, err := bench.SelectKinds(cfg.Bench.Strategies)
	if err != nil {
		return bench.Suite{}, err
	}
	return bench.Suite{
		Kinds:       kinds,
		Workers:     cfg.Harness.Workers,
		Repetitions: cfg.Harness.Repetitions,
		Trials:      cfg.Bench.Trials,
		WaitTimeout: cfg.Harness.WaitTimeout,
		Batch:       cfg.Harness.Batch,
	}, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	suite, err := benchSuite(cfg)
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Close() }()

	bus := event.NewBus()
	defer bus.Unsubscribe(bus.SubscribeAll(eventLogger(logger)))
	if isTerminal(cmd.ErrOrStderr()) {
		id, err := bus.Subscribe(event.TypeTrialCompleted, progressPrinter(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		defer bus.Unsubscribe(id)
	}

	sums, err := suite.Run(cmd.Context(), bench.WithLogger(logger), bench.WithEventBus(bus))
	if len(sums) > 0 {
		if perr := newPrinter(cmd.OutOrStdout(), cfg.Output).summaries(suite, sums); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}

	violations := 0
	for i := range sums {
		violations += sums[i].Violations()
	}
	if violations > 0 {
		return fmt.Errorf("%d trial(s) of correct strategies did not match", violations)
	}
	return nil
}

// progressPrinter rewrites a single status line on w after every trial.
func progressPrinter(w io.Writer) event.Handler {
	return func(e event.Event) {
		trial, ok := e.(event.TrialCompletedEvent)
		if !ok {
			return
		}
		fmt.Fprintf(w, "\r%s%s trial %d/%d: %s", ansi.EraseEntireLine, trial.Strategy, trial.Trial, trial.Trials, trial.Outcome)
		if trial.Trial == trial.Trials {
			fmt.Fprint(w, "\r"+ansi.EraseEntireLine)
		}
	}
}

// eventLogger traces every bus event at debug level.
func eventLogger(logger *logging.Logger) event.Handler {
	return func(e event.Event) {
		logger.Debug("event", "type", e.EventType())
	}
}
