package bench

import (
	"context"
	"math"
	"time"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/event"
	"github.com/Iron-Ham/syncbench/internal/harness"
	"github.com/Iron-Ham/syncbench/internal/logging"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// Suite runs every selected kind several times with the same shape.
type Suite struct {
	Kinds       []strategy.Kind
	Workers     int
	Repetitions int
	Trials      int
	WaitTimeout time.Duration
	Batch       bool
}

// Option configures a suite run.
type Option func(*runner)

type runner struct {
	logger *logging.Logger
	bus    *event.Bus
}

// WithLogger sets the logger passed to every harness.
func WithLogger(logger *logging.Logger) Option {
	return func(r *runner) {
		r.logger = logger
	}
}

// WithEventBus publishes a bench.trial event after every trial, and forwards
// the bus to every harness.
func WithEventBus(bus *event.Bus) Option {
	return func(r *runner) {
		r.bus = bus
	}
}

// Summary aggregates the trials of one kind.
type Summary struct {
	Strategy    strategy.Kind `json:"strategy" yaml:"strategy"`
	Correct     bool          `json:"correct" yaml:"correct"`
	Trials      int           `json:"trials" yaml:"trials"`
	Matches     int           `json:"matches" yaml:"matches"`
	Mismatches  int           `json:"mismatches" yaml:"mismatches"`
	Deadlocks   int           `json:"deadlocks" yaml:"deadlocks"`
	Panics      int           `json:"panics" yaml:"panics"`
	Expected    int64         `json:"expected" yaml:"expected"`
	MinObserved int64         `json:"min_observed" yaml:"min_observed"`
	MaxObserved int64         `json:"max_observed" yaml:"max_observed"`
	// Distinct counts the different totals observed across trials. Anything
	// above one means the result depends on scheduling.
	Distinct     int           `json:"distinct" yaml:"distinct"`
	MeanDuration time.Duration `json:"mean_duration" yaml:"mean_duration"`
	// LostRatio is the mean fraction of increments lost per trial.
	LostRatio float64 `json:"lost_ratio" yaml:"lost_ratio"`

	Results []*harness.Result `json:"-" yaml:"-"`
}

// Reliable reports whether every trial matched.
func (s *Summary) Reliable() bool {
	return s.Trials > 0 && s.Matches == s.Trials
}

// Violations counts trials that broke the W*R guarantee of a correct kind.
// It is always zero for unsynchronized and deadlock.
func (s *Summary) Violations() int {
	if !s.Correct {
		return 0
	}
	return s.Trials - s.Matches
}

// Validate checks the suite shape.
func (s Suite) Validate() error {
	if len(s.Kinds) == 0 {
		return errors.NewValidationError("at least one strategy is required").WithField("strategies")
	}
	if s.Trials < 1 {
		return errors.NewValidationError("must be at least 1").WithField("trials").WithValue(s.Trials)
	}
	for _, k := range s.Kinds {
		if err := s.config(k).Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s Suite) config(kind strategy.Kind) harness.Config {
	return harness.Config{
		Strategy:    kind,
		Workers:     s.Workers,
		Repetitions: s.Repetitions,
		WaitTimeout: s.WaitTimeout,
		Batch:       s.Batch,
	}
}

// Run executes the suite kind by kind. On cancellation it returns the
// summaries of the kinds that finished along with the error.
func (s Suite) Run(ctx context.Context, opts ...Option) ([]Summary, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	r := &runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NopLogger()
	}

	hopts := []harness.Option{harness.WithLogger(r.logger)}
	if r.bus != nil {
		hopts = append(hopts, harness.WithEventBus(r.bus))
	}

	summaries := make([]Summary, 0, len(s.Kinds))
	for _, kind := range s.Kinds {
		h, err := harness.New(s.config(kind), hopts...)
		if err != nil {
			return summaries, err
		}

		results := make([]*harness.Result, 0, s.Trials)
		for trial := 1; trial <= s.Trials; trial++ {
			res, err := h.Run(ctx)
			if err != nil {
				return summaries, err
			}
			results = append(results, res)
			if r.bus != nil {
				r.bus.Publish(event.NewTrialCompletedEvent(kind.String(), trial, s.Trials, res.Outcome.String()))
			}
		}

		sum := Summarize(kind, results)
		r.logger.Info("strategy benchmarked",
			"strategy", kind.String(),
			"trials", sum.Trials,
			"matches", sum.Matches,
			"distinct", sum.Distinct,
			"lost_ratio", sum.LostRatio,
		)
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Summarize aggregates results, which must all belong to kind.
func Summarize(kind strategy.Kind, results []*harness.Result) Summary {
	sum := Summary{
		Strategy: kind,
		Correct:  kind.Correct(),
		Trials:   len(results),
		Results:  results,
	}
	if len(results) == 0 {
		return sum
	}

	sum.Expected = results[0].ExpectedTotal
	sum.MinObserved, sum.MaxObserved = math.MaxInt64, math.MinInt64

	seen := make(map[int64]bool)
	var (
		total    time.Duration
		lostFrac float64
	)
	for _, res := range results {
		switch res.Outcome {
		case harness.OutcomeMatch:
			sum.Matches++
		case harness.OutcomeMismatch:
			sum.Mismatches++
		case harness.OutcomeDeadlockSuspected:
			sum.Deadlocks++
		case harness.OutcomeWorkerPanic:
			sum.Panics++
		}
		sum.MinObserved = min(sum.MinObserved, res.ObservedTotal)
		sum.MaxObserved = max(sum.MaxObserved, res.ObservedTotal)
		seen[res.ObservedTotal] = true
		total += res.Duration
		if res.ExpectedTotal > 0 {
			lostFrac += float64(res.Lost()) / float64(res.ExpectedTotal)
		}
	}

	sum.Distinct = len(seen)
	sum.MeanDuration = total / time.Duration(len(results))
	sum.LostRatio = lostFrac / float64(len(results))
	return sum
}
