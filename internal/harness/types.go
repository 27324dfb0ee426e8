package harness

import (
	"math"
	"time"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// Phase is a coordinator state. A run moves strictly forward through
// idle → spawning → awaiting-completion → aggregating → reported.
type Phase string

const (
	// PhaseIdle indicates no run is in progress.
	PhaseIdle Phase = "idle"

	// PhaseSpawning indicates the coordinator is launching workers.
	PhaseSpawning Phase = "spawning"

	// PhaseAwaiting indicates the coordinator is waiting for completion
	// signals. For serialized kinds the remaining spawns happen here, each one
	// after the previous worker has been joined.
	PhaseAwaiting Phase = "awaiting-completion"

	// PhaseAggregating indicates the coordinator is computing the outcome.
	PhaseAggregating Phase = "aggregating"

	// PhaseReported indicates the run has produced its Result.
	PhaseReported Phase = "reported"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true if this phase represents a final state.
func (p Phase) IsTerminal() bool {
	return p == PhaseReported
}

// Outcome classifies a finished run.
type Outcome string

const (
	// OutcomeMatch means the observed total equals W*R.
	OutcomeMatch Outcome = "match"

	// OutcomeMismatch means every worker completed but updates were lost.
	OutcomeMismatch Outcome = "mismatch"

	// OutcomeDeadlockSuspected means the bounded wait elapsed before every
	// completion signal arrived.
	OutcomeDeadlockSuspected Outcome = "deadlock-suspected"

	// OutcomeWorkerPanic means at least one worker panicked.
	OutcomeWorkerPanic Outcome = "worker-panic"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Config describes a single run.
type Config struct {
	Strategy    strategy.Kind // Synchronization discipline under test
	Workers     int           // W, concurrent workers
	Repetitions int           // R, increments per worker
	WaitTimeout time.Duration // Upper bound on the awaiting phase
	Batch       bool          // One IncrementBy(R) per worker instead of R IncrementBy(1)
}

// DefaultConfig returns the canonical exclusive-lock run: 100 workers of
// 10000 increments each, bounded at 30 seconds.
func DefaultConfig() Config {
	return Config{
		Strategy:    strategy.ExclusiveLock,
		Workers:     100,
		Repetitions: 10000,
		WaitTimeout: 30 * time.Second,
	}
}

// Expected returns W*R.
func (c Config) Expected() int64 {
	return int64(c.Workers) * int64(c.Repetitions)
}

// Validate checks the configuration. W = 0 and R = 0 are valid and expect a
// total of zero.
func (c Config) Validate() error {
	if _, err := c.Strategy.MarshalText(); err != nil {
		return errors.NewValidationError("unknown strategy kind").
			WithField("strategy").
			WithValue(int(c.Strategy)).
			WithCause(errors.ErrUnknownStrategy)
	}
	if c.Workers < 0 {
		return errors.NewValidationError("must be non-negative").WithField("workers").WithValue(c.Workers)
	}
	if c.Repetitions < 0 {
		return errors.NewValidationError("must be non-negative").WithField("repetitions").WithValue(c.Repetitions)
	}
	if c.WaitTimeout <= 0 {
		return errors.NewValidationError("must be positive").WithField("wait_timeout").WithValue(c.WaitTimeout)
	}
	if c.Repetitions > 0 && int64(c.Workers) > math.MaxInt64/int64(c.Repetitions) {
		return errors.NewValidationError("workers * repetitions overflows int64").
			WithField("repetitions").
			WithValue(c.Repetitions)
	}
	return nil
}

// Result is the report of a finished run.
type Result struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Strategy      strategy.Kind `json:"strategy" yaml:"strategy"`
	Workers       int           `json:"workers" yaml:"workers"`
	Repetitions   int           `json:"repetitions" yaml:"repetitions"`
	Batch         bool          `json:"batch" yaml:"batch"`
	ObservedTotal int64         `json:"observed_total" yaml:"observed_total"`
	ExpectedTotal int64         `json:"expected_total" yaml:"expected_total"`
	Outcome       Outcome       `json:"outcome" yaml:"outcome"`
	// Completed counts workers that finished all their repetitions and
	// delivered their completion signal.
	Completed int           `json:"completed" yaml:"completed"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	// Err is the typed failure behind a non-match outcome; nil for a match.
	Err error `json:"-" yaml:"-"`
}

// Lost returns how many increments are missing from the observed total.
func (r *Result) Lost() int64 {
	return r.ExpectedTotal - r.ObservedTotal
}

// Passed reports whether the run matched.
func (r *Result) Passed() bool {
	return r.Outcome == OutcomeMatch
}

// Violates reports whether the run broke the guarantee of a strategy that
// promises W*R. Non-matches of unsynchronized and deadlock runs are expected
// and do not count.
func (r *Result) Violates() bool {
	return r.Strategy.Correct() && r.Outcome != OutcomeMatch
}
