package harness

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/event"
	"github.com/Iron-Ham/syncbench/internal/logging"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// Harness is the coordinator. It owns the shared state of each run, spawns
// the workers, waits for them under a bounded timeout and classifies the
// observed total.
//
// A Harness may be run repeatedly; each Run starts from a fresh counter.
// Concurrent calls to Run are serialized.
type Harness struct {
	cfg    Config
	opts   options
	logger *logging.Logger

	runMu sync.Mutex // held for the duration of Run

	mu    sync.RWMutex
	phase Phase
}

// New creates a Harness for cfg. It fails with a *errors.ValidationError if
// cfg is invalid.
func New(cfg Config, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}

	return &Harness{
		cfg:    cfg,
		opts:   o,
		logger: o.logger,
		phase:  PhaseIdle,
	}, nil
}

// Config returns the run configuration.
func (h *Harness) Config() Config {
	return h.cfg
}

// Phase returns the coordinator's current phase.
func (h *Harness) Phase() Phase {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.phase
}

// setPhase sets the current phase and returns the previous one.
func (h *Harness) setPhase(phase Phase) Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.phase
	h.phase = phase
	return prev
}

// Run executes one run and reports its outcome.
//
// Lost updates, a suspected deadlock and worker panics are all outcomes
// carried in the Result, never errors. Run returns an error only when ctx
// is done before an outcome is reached; the error wraps both
// errors.ErrCanceled and ctx.Err(). Workers still running at that point are
// not stopped.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	id := h.opts.runID
	if id == "" {
		id = generateID()
	}
	r := &run{
		h:      h,
		id:     id,
		cfg:    h.cfg,
		logger: h.logger.WithRun(id).WithStrategy(h.cfg.Strategy.String()),
		panics: &panicLog{},
	}
	h.setPhase(PhaseIdle)

	r.logger.Info("run starting",
		"workers", r.cfg.Workers,
		"repetitions", r.cfg.Repetitions,
		"batch", r.cfg.Batch,
		"wait_timeout", r.cfg.WaitTimeout,
	)

	start := time.Now()
	r.deadline = start.Add(r.cfg.WaitTimeout)

	r.transition(PhaseSpawning)
	exec, err := r.execute(ctx)
	if err != nil {
		phase := h.Phase()
		r.logger.Warn("run canceled", "phase", phase, "error", err)
		return nil, errors.NewHarnessError("run canceled before an outcome was reached",
			errors.Join(errors.ErrCanceled, err)).
			WithStrategy(r.cfg.Strategy.String()).
			WithPhase(phase.String())
	}

	r.transition(PhaseAggregating)
	res := r.aggregate(exec, time.Since(start))
	r.transition(PhaseReported)

	r.publish(event.NewRunReportedEvent(r.id, r.cfg.Strategy.String(), res.Outcome.String(),
		res.ObservedTotal, res.ExpectedTotal, res.Duration))

	attrs := []any{
		"outcome", res.Outcome,
		"observed", res.ObservedTotal,
		"expected", res.ExpectedTotal,
		"completed", res.Completed,
		"duration_ms", res.Duration.Milliseconds(),
	}
	if res.Violates() {
		r.logger.Error("run reported", append(attrs, "error", res.Err)...)
	} else {
		r.logger.Info("run reported", attrs...)
	}
	return res, nil
}

// run is the per-Run state shared by the executors.
type run struct {
	h        *Harness
	id       string
	cfg      Config
	logger   *logging.Logger
	deadline time.Time
	panics   *panicLog
}

// execution is what an executor observed before aggregation.
type execution struct {
	observed  int64
	completed int
	timedOut  bool
}

func (r *run) execute(ctx context.Context) (*execution, error) {
	switch r.cfg.Strategy {
	case strategy.Unsynchronized, strategy.ExclusiveLock, strategy.ReadWriteLock:
		return r.runShared(ctx)
	case strategy.ChannelRendezvous:
		return r.runRendezvous(ctx)
	case strategy.ChannelRelay:
		return r.runRelay(ctx)
	case strategy.SequentialJoin:
		return r.runSequential(ctx)
	case strategy.Deadlock:
		return r.runDeadlock(ctx)
	default:
		// Validate rejects unknown kinds before a Harness exists.
		panic(fmt.Sprintf("harness: no executor for %v", r.cfg.Strategy))
	}
}

// transition moves the coordinator to phase, logging and publishing the change.
func (r *run) transition(phase Phase) {
	prev := r.h.setPhase(phase)
	r.logger.Debug("phase changed", "from", prev, "to", phase)
	r.publish(event.NewPhaseChangedEvent(r.id, r.cfg.Strategy.String(), prev.String(), phase.String()))
}

func (r *run) publish(e event.Event) {
	if r.h.opts.bus != nil {
		r.h.opts.bus.Publish(e)
	}
}

// spawn runs fn on its own goroutine and returns a channel closed once fn
// has returned.
func (r *run) spawn(fn func()) <-chan struct{} {
	var wg conc.WaitGroup
	wg.Go(fn)
	return r.joined(&wg)
}

// joined returns a channel closed once every goroutine in wg has returned.
// Worker bodies recover their own panics, so anything wg catches escaped the
// worker bookkeeping itself and is logged rather than rethrown.
func (r *run) joined(wg *conc.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if rec := wg.WaitAndRecover(); rec != nil {
			r.logger.Error("unattributed panic in worker group", "panic", fmt.Sprint(rec.Value))
			r.panics.add(errors.NewWorkerPanicError(-1, rec.Value).WithStack(string(rec.Stack)))
		}
	}()
	return done
}

// await blocks until done is closed, the run deadline passes, or ctx is done.
// It reports timedOut when the deadline won; err is ctx.Err() when ctx won.
func (r *run) await(ctx context.Context, done <-chan struct{}) (timedOut bool, err error) {
	remaining := time.Until(r.deadline)
	if remaining <= 0 {
		select {
		case <-done:
			return false, nil
		default:
			return true, nil
		}
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-done:
		return false, nil
	case <-timer.C:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// aggregate classifies exec. A panic outranks a timeout, which outranks a
// wrong total.
func (r *run) aggregate(exec *execution, elapsed time.Duration) *Result {
	kind := r.cfg.Strategy
	res := &Result{
		RunID:         r.id,
		Strategy:      kind,
		Workers:       r.cfg.Workers,
		Repetitions:   r.cfg.Repetitions,
		Batch:         r.cfg.Batch,
		ObservedTotal: exec.observed,
		ExpectedTotal: r.cfg.Expected(),
		Completed:     exec.completed,
		Duration:      elapsed,
	}

	switch perrs := r.panics.list(); {
	case len(perrs) > 0:
		res.Outcome = OutcomeWorkerPanic
		if len(perrs) == 1 {
			res.Err = perrs[0]
		} else {
			joined := make([]error, len(perrs))
			for i, e := range perrs {
				joined[i] = e
			}
			res.Err = errors.Join(joined...)
		}
	case exec.timedOut:
		res.Outcome = OutcomeDeadlockSuspected
		derr := errors.NewDeadlockSuspectedError(kind.String(), r.cfg.WaitTimeout).
			WithCompleted(exec.completed, r.cfg.Workers)
		if kind == strategy.Deadlock {
			derr = derr.WithSeverity(errors.SeverityWarning)
		}
		res.Err = derr
	case res.ObservedTotal != res.ExpectedTotal:
		res.Outcome = OutcomeMismatch
		verr := errors.NewInvariantViolationError(kind.String(), res.ObservedTotal, res.ExpectedTotal)
		if !kind.Correct() {
			verr = verr.WithSeverity(errors.SeverityWarning)
		}
		res.Err = verr
	default:
		res.Outcome = OutcomeMatch
	}
	return res
}

// generateID creates a short random hex ID.
// Falls back to a timestamp-based ID if crypto/rand fails.
func generateID() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return hex.EncodeToString(bytes)
}
