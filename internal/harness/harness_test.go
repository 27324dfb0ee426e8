package harness

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/event"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// newTestHarness builds a harness and fails the test on validation errors.
func newTestHarness(t *testing.T, cfg Config, opts ...Option) *Harness {
	t.Helper()
	h, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New(%+v) failed: %v", cfg, err)
	}
	return h
}

// mustRun runs h and fails the test if Run returns an error.
func mustRun(t *testing.T, h *Harness) *Result {
	t.Helper()
	res, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res == nil {
		t.Fatal("Run() returned nil result")
	}
	return res
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"zero workers", func(c *Config) { c.Workers = 0 }, nil},
		{"zero repetitions", func(c *Config) { c.Repetitions = 0 }, nil},
		{"negative workers", func(c *Config) { c.Workers = -1 }, errors.ErrInvalidInput},
		{"negative repetitions", func(c *Config) { c.Repetitions = -1 }, errors.ErrInvalidInput},
		{"zero timeout", func(c *Config) { c.WaitTimeout = 0 }, errors.ErrInvalidInput},
		{"unknown kind", func(c *Config) { c.Strategy = strategy.Kind(42) }, errors.ErrUnknownStrategy},
		{"overflow", func(c *Config) { c.Workers, c.Repetitions = 1<<40, 1<<40 }, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			h, err := New(cfg)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("New() unexpected error: %v", err)
				}
				if h.Phase() != PhaseIdle {
					t.Errorf("Phase() = %v, want %v", h.Phase(), PhaseIdle)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
			var verr *errors.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("New() error %T should be a *ValidationError", err)
			}
		})
	}
}

func TestRun_EndToEnd(t *testing.T) {
	h := newTestHarness(t, Config{
		Strategy:    strategy.ExclusiveLock,
		Workers:     100,
		Repetitions: 10000,
		WaitTimeout: 30 * time.Second,
	})

	res := mustRun(t, h)

	if res.ExpectedTotal != 1_000_000 {
		t.Errorf("ExpectedTotal = %d, want 1000000", res.ExpectedTotal)
	}
	if res.ObservedTotal != 1_000_000 {
		t.Errorf("ObservedTotal = %d, want 1000000", res.ObservedTotal)
	}
	if res.Outcome != OutcomeMatch {
		t.Errorf("Outcome = %v, want %v (err: %v)", res.Outcome, OutcomeMatch, res.Err)
	}
	if res.Completed != 100 {
		t.Errorf("Completed = %d, want 100", res.Completed)
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
	if h.Phase() != PhaseReported {
		t.Errorf("Phase() = %v, want %v", h.Phase(), PhaseReported)
	}
}

func TestRun_CorrectKindsMatch(t *testing.T) {
	kinds := []strategy.Kind{
		strategy.ExclusiveLock,
		strategy.ReadWriteLock,
		strategy.ChannelRendezvous,
		strategy.ChannelRelay,
		strategy.SequentialJoin,
	}
	shapes := []struct{ workers, reps int }{
		{0, 0},
		{0, 100},
		{10, 0},
		{1, 1},
		{7, 500},
		{32, 2000},
	}

	for _, kind := range kinds {
		for _, shape := range shapes {
			for _, batch := range []bool{false, true} {
				name := kind.String()
				if batch {
					name += "/batch"
				}
				t.Run(name, func(t *testing.T) {
					h := newTestHarness(t, Config{
						Strategy:    kind,
						Workers:     shape.workers,
						Repetitions: shape.reps,
						WaitTimeout: 10 * time.Second,
						Batch:       batch,
					})
					res := mustRun(t, h)

					want := int64(shape.workers) * int64(shape.reps)
					if res.ObservedTotal != want || res.Outcome != OutcomeMatch {
						t.Errorf("W=%d R=%d: observed %d (%v), want %d match",
							shape.workers, shape.reps, res.ObservedTotal, res.Outcome, want)
					}
					if res.Completed != shape.workers {
						t.Errorf("Completed = %d, want %d", res.Completed, shape.workers)
					}
					if res.Violates() {
						t.Errorf("Violates() = true for a match")
					}
				})
			}
		}
	}
}

func TestRun_Unsynchronized(t *testing.T) {
	const trials = 10
	workers := 4 * runtime.GOMAXPROCS(0)
	reps := 50_000
	if testing.Short() {
		reps = 10_000
	}

	mismatches := 0
	for trial := range trials {
		h := newTestHarness(t, Config{
			Strategy:    strategy.Unsynchronized,
			Workers:     workers,
			Repetitions: reps,
			WaitTimeout: 30 * time.Second,
		})
		res := mustRun(t, h)

		switch res.Outcome {
		case OutcomeMatch:
		case OutcomeMismatch:
			mismatches++
			if !errors.Is(res.Err, errors.ErrInvariantViolation) {
				t.Errorf("trial %d: Err = %v, want ErrInvariantViolation", trial, res.Err)
			}
			if got := errors.GetSeverity(res.Err); got != errors.SeverityWarning {
				t.Errorf("trial %d: severity = %v, want warning", trial, got)
			}
		default:
			t.Fatalf("trial %d: unexpected outcome %v: %v", trial, res.Outcome, res.Err)
		}
		if res.ObservedTotal > res.ExpectedTotal {
			t.Errorf("trial %d: observed %d exceeds expected %d", trial, res.ObservedTotal, res.ExpectedTotal)
		}
		if res.ObservedTotal < 0 {
			t.Errorf("trial %d: observed %d is negative", trial, res.ObservedTotal)
		}
		if res.Completed != workers {
			t.Errorf("trial %d: Completed = %d, want %d", trial, res.Completed, workers)
		}
		if res.Violates() {
			t.Errorf("trial %d: lost updates must not count as a violation for unsynchronized", trial)
		}
	}

	// Lost updates need real parallelism to show up.
	if runtime.GOMAXPROCS(0) < 2 || runtime.NumCPU() < 2 {
		t.Skipf("single CPU: %d/%d trials mismatched, no assertion", mismatches, trials)
	}
	if mismatches == 0 {
		t.Errorf("expected at least one lost update in %d trials of %d workers x %d reps", trials, workers, reps)
	}
}

func TestRun_Deadlock(t *testing.T) {
	const timeout = 100 * time.Millisecond
	h := newTestHarness(t, Config{
		Strategy:    strategy.Deadlock,
		Workers:     2,
		Repetitions: 5,
		WaitTimeout: timeout,
	})

	start := time.Now()
	res := mustRun(t, h)
	elapsed := time.Since(start)

	if res.Outcome != OutcomeDeadlockSuspected {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeDeadlockSuspected)
	}
	if elapsed < timeout {
		t.Errorf("reported after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+2*time.Second {
		t.Errorf("reported after %v, want roughly %v", elapsed, timeout)
	}
	if !errors.Is(res.Err, errors.ErrDeadlockSuspected) {
		t.Errorf("Err = %v, want ErrDeadlockSuspected", res.Err)
	}
	if !errors.IsTimeout(res.Err) {
		t.Error("IsTimeout(Err) should be true")
	}

	var derr *errors.DeadlockSuspectedError
	if !errors.As(res.Err, &derr) {
		t.Fatalf("Err %T should be a *DeadlockSuspectedError", res.Err)
	}
	if derr.Workers != 2 || derr.Waited != timeout {
		t.Errorf("DeadlockSuspectedError = %+v", derr)
	}

	// At most one worker ever acquires the leaked lock.
	if res.Completed > 1 {
		t.Errorf("Completed = %d, want at most 1", res.Completed)
	}
	if res.ObservedTotal > 5 {
		t.Errorf("ObservedTotal = %d, want at most one worker's repetitions", res.ObservedTotal)
	}
	if res.Violates() {
		t.Error("a suspected deadlock is the expected outcome for the deadlock kind")
	}
}

func TestRun_DeadlockWithoutWorkers(t *testing.T) {
	h := newTestHarness(t, Config{
		Strategy:    strategy.Deadlock,
		Workers:     0,
		Repetitions: 10,
		WaitTimeout: 5 * time.Second,
	})
	res := mustRun(t, h)
	if res.Outcome != OutcomeMatch {
		t.Errorf("Outcome = %v, want match when no worker can leak the lock", res.Outcome)
	}
}

func TestRun_WorkerPanic(t *testing.T) {
	kinds := []strategy.Kind{
		strategy.Unsynchronized,
		strategy.ExclusiveLock,
		strategy.ReadWriteLock,
		strategy.ChannelRendezvous,
		strategy.ChannelRelay,
		strategy.SequentialJoin,
	}

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			h := newTestHarness(t, Config{
				Strategy:    kind,
				Workers:     5,
				Repetitions: 100,
				WaitTimeout: 10 * time.Second,
			}, WithWorkerHook(func(id int) {
				if id == 3 {
					panic("boom")
				}
			}))

			res := mustRun(t, h)

			if res.Outcome != OutcomeWorkerPanic {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeWorkerPanic)
			}
			var perr *errors.WorkerPanicError
			if !errors.As(res.Err, &perr) {
				t.Fatalf("Err %T should be a *WorkerPanicError", res.Err)
			}
			if perr.WorkerID != 3 || perr.Value != "boom" {
				t.Errorf("WorkerPanicError = worker %d value %v", perr.WorkerID, perr.Value)
			}
			if perr.Stack == "" {
				t.Error("WorkerPanicError should carry the recovered stack")
			}
			if res.Completed != 4 {
				t.Errorf("Completed = %d, want 4", res.Completed)
			}
			if kind.Correct() && res.ObservedTotal != 400 {
				t.Errorf("ObservedTotal = %d, want 400 from the surviving workers", res.ObservedTotal)
			}
			if !res.Violates() && kind.Correct() {
				t.Error("a worker panic should violate a correct strategy")
			}
		})
	}
}

func TestRun_MultipleWorkerPanics(t *testing.T) {
	h := newTestHarness(t, Config{
		Strategy:    strategy.ExclusiveLock,
		Workers:     6,
		Repetitions: 10,
		WaitTimeout: 10 * time.Second,
	}, WithWorkerHook(func(id int) {
		if id%2 == 1 {
			panic(id)
		}
	}))

	res := mustRun(t, h)

	if res.Outcome != OutcomeWorkerPanic {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeWorkerPanic)
	}
	if !errors.Is(res.Err, errors.ErrWorkerPanic) {
		t.Errorf("Err = %v, want ErrWorkerPanic", res.Err)
	}
	joined, ok := res.Err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("Err %T should join the individual panics", res.Err)
	}
	errs := joined.Unwrap()
	if len(errs) != 3 {
		t.Fatalf("joined %d panics, want 3", len(errs))
	}
	for i, e := range errs {
		var perr *errors.WorkerPanicError
		if !errors.As(e, &perr) {
			t.Fatalf("joined[%d] is %T", i, e)
		}
		if want := 2*i + 1; perr.WorkerID != want {
			t.Errorf("joined[%d].WorkerID = %d, want %d (ordered by worker)", i, perr.WorkerID, want)
		}
	}
}

func TestRun_TimeoutOnSlowWorker(t *testing.T) {
	for _, kind := range []strategy.Kind{strategy.ExclusiveLock, strategy.ChannelRendezvous, strategy.ChannelRelay, strategy.SequentialJoin} {
		t.Run(kind.String(), func(t *testing.T) {
			release := make(chan struct{})
			t.Cleanup(func() { close(release) })

			h := newTestHarness(t, Config{
				Strategy:    kind,
				Workers:     3,
				Repetitions: 10,
				WaitTimeout: 100 * time.Millisecond,
			}, WithWorkerHook(func(id int) {
				if id == 1 {
					<-release
				}
			}))

			res := mustRun(t, h)

			if res.Outcome != OutcomeDeadlockSuspected {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeDeadlockSuspected)
			}
			if res.Completed > 2 {
				t.Errorf("Completed = %d, want at most 2 with worker 1 stuck", res.Completed)
			}
			if got := errors.GetSeverity(res.Err); got != errors.SeverityCritical {
				t.Errorf("severity = %v, want critical for a correct strategy", got)
			}
		})
	}
}

func TestRun_TimeoutWhileLockHeld(t *testing.T) {
	if testing.Short() {
		t.Skip("holds a lock for seconds in the background")
	}

	const reps = 1_500_000_000
	for _, kind := range []strategy.Kind{strategy.ExclusiveLock, strategy.ReadWriteLock} {
		t.Run(kind.String(), func(t *testing.T) {
			timeout := 100 * time.Millisecond
			h := newTestHarness(t, Config{
				Strategy:    kind,
				Workers:     2,
				Repetitions: reps,
				WaitTimeout: timeout,
				Batch:       true,
			})

			start := time.Now()
			res := mustRun(t, h)
			elapsed := time.Since(start)

			if res.Outcome != OutcomeDeadlockSuspected {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeDeadlockSuspected)
			}
			if elapsed > timeout+time.Second {
				t.Errorf("Run() took %v after a %v timeout; it waited on the held lock", elapsed, timeout)
			}
			if res.ObservedTotal >= res.ExpectedTotal {
				t.Errorf("ObservedTotal = %d, want less than %d", res.ObservedTotal, res.ExpectedTotal)
			}
			if res.ObservedTotal%reps != 0 {
				t.Errorf("ObservedTotal = %d, want whole batches only", res.ObservedTotal)
			}
		})
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	h := newTestHarness(t, Config{
		Strategy:    strategy.Deadlock,
		Workers:     2,
		Repetitions: 1,
		WaitTimeout: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := h.Run(ctx)
	if err == nil {
		t.Fatalf("Run() = %+v, want cancellation error", res)
	}
	if res != nil {
		t.Errorf("Run() result = %+v, want nil on cancellation", res)
	}
	if !errors.Is(err, errors.ErrCanceled) {
		t.Errorf("error %v should wrap ErrCanceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
	var herr *errors.HarnessError
	if !errors.As(err, &herr) || herr.Phase != PhaseAwaiting.String() {
		t.Errorf("error should be a HarnessError in phase %s, got %v", PhaseAwaiting, err)
	}
}

func TestRun_ContextDeadlineOnRendezvous(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := newTestHarness(t, Config{
		Strategy:    strategy.ChannelRendezvous,
		Workers:     2,
		Repetitions: 1,
		WaitTimeout: time.Minute,
	}, WithWorkerHook(func(int) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRun_PhaseEvents(t *testing.T) {
	bus := event.NewBus()

	var (
		mu        sync.Mutex
		phases    []event.PhaseChangedEvent
		reports   []event.RunReportedEvent
		started   = map[int]bool{}
		completed = map[int]int64{}
	)
	if _, err := bus.Subscribe("harness.*", func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch ev := e.(type) {
		case event.PhaseChangedEvent:
			phases = append(phases, ev)
		case event.RunReportedEvent:
			reports = append(reports, ev)
		}
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Subscribe("worker.*", func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch ev := e.(type) {
		case event.WorkerStartedEvent:
			started[ev.WorkerID] = true
		case event.WorkerCompletedEvent:
			completed[ev.WorkerID] += ev.Increments
		}
	}); err != nil {
		t.Fatal(err)
	}

	h := newTestHarness(t, Config{
		Strategy:    strategy.ReadWriteLock,
		Workers:     8,
		Repetitions: 50,
		WaitTimeout: 10 * time.Second,
	}, WithEventBus(bus), WithRunID("run-fixed"))

	res := mustRun(t, h)
	if res.RunID != "run-fixed" {
		t.Errorf("RunID = %q, want run-fixed", res.RunID)
	}

	mu.Lock()
	defer mu.Unlock()

	want := []Phase{PhaseSpawning, PhaseAwaiting, PhaseAggregating, PhaseReported}
	if len(phases) != len(want) {
		t.Fatalf("got %d phase events, want %d: %+v", len(phases), len(want), phases)
	}
	prev := PhaseIdle
	for i, ev := range phases {
		if ev.From != prev.String() || ev.To != want[i].String() {
			t.Errorf("phase event %d = %s -> %s, want %s -> %s", i, ev.From, ev.To, prev, want[i])
		}
		if ev.RunID != "run-fixed" || ev.Strategy != "rw-lock" {
			t.Errorf("phase event %d carries run %q strategy %q", i, ev.RunID, ev.Strategy)
		}
		prev = want[i]
	}

	if len(reports) != 1 {
		t.Fatalf("got %d report events, want 1", len(reports))
	}
	if reports[0].Outcome != "match" || reports[0].Observed != 400 {
		t.Errorf("report event = %+v", reports[0])
	}

	if len(started) != 8 || len(completed) != 8 {
		t.Errorf("worker events: %d started, %d completed, want 8 each", len(started), len(completed))
	}
	for id, n := range completed {
		if n != 50 {
			t.Errorf("worker %d reported %d increments, want 50", id, n)
		}
	}
}

func TestRun_Repeatable(t *testing.T) {
	h := newTestHarness(t, Config{
		Strategy:    strategy.ChannelRelay,
		Workers:     4,
		Repetitions: 25,
		WaitTimeout: 10 * time.Second,
	})

	first := mustRun(t, h)
	second := mustRun(t, h)

	if first.ObservedTotal != 100 || second.ObservedTotal != 100 {
		t.Errorf("totals = %d, %d; each run should start from a fresh counter", first.ObservedTotal, second.ObservedTotal)
	}
	if first.RunID == second.RunID {
		t.Errorf("runs share ID %q", first.RunID)
	}
}

func TestFold(t *testing.T) {
	partials := make([]int64, 64)
	var want int64
	for i := range partials {
		partials[i] = int64(i*i + 1)
		want += partials[i]
	}

	if got := Fold(partials); got != want {
		t.Fatalf("Fold() = %d, want %d", got, want)
	}
	for range 20 {
		shuffled := append([]int64(nil), partials...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := Fold(shuffled); got != want {
			t.Errorf("Fold(shuffled) = %d, want %d", got, want)
		}
	}
	if got := Fold(nil); got != 0 {
		t.Errorf("Fold(nil) = %d, want 0", got)
	}
}

func TestRendezvous_OneMessagePerWorker(t *testing.T) {
	r := &run{cfg: Config{Workers: 3, Repetitions: 4, WaitTimeout: time.Second}}
	r.deadline = time.Now().Add(time.Second)

	in := make(chan int64, 5)
	for range 5 {
		in <- 4
	}
	exited := make(chan struct{})

	received, timedOut, err := r.receivePartials(context.Background(), in, exited)
	if err != nil || timedOut {
		t.Fatalf("receivePartials: timedOut=%v err=%v", timedOut, err)
	}
	if len(received) != 3 {
		t.Errorf("received %d partials, want exactly W=3", len(received))
	}
	if len(in) != 2 {
		t.Errorf("%d partials left unread, want 2", len(in))
	}
}

func TestRendezvous_DrainsAfterExit(t *testing.T) {
	r := &run{cfg: Config{Workers: 4}}
	r.deadline = time.Now().Add(time.Second)

	in := make(chan int64, 4)
	in <- 10
	in <- 20
	exited := make(chan struct{})
	close(exited)

	received, timedOut, err := r.receivePartials(context.Background(), in, exited)
	if err != nil || timedOut {
		t.Fatalf("receivePartials: timedOut=%v err=%v", timedOut, err)
	}
	if Fold(received) != 30 {
		t.Errorf("received %v, want both buffered partials", received)
	}
}

func TestResult_Helpers(t *testing.T) {
	res := &Result{Strategy: strategy.ExclusiveLock, ObservedTotal: 90, ExpectedTotal: 100, Outcome: OutcomeMismatch}
	if res.Lost() != 10 {
		t.Errorf("Lost() = %d, want 10", res.Lost())
	}
	if res.Passed() {
		t.Error("Passed() should be false for a mismatch")
	}
	if !res.Violates() {
		t.Error("Violates() should be true for a correct strategy mismatch")
	}

	res.Strategy = strategy.Unsynchronized
	if res.Violates() {
		t.Error("Violates() should be false for unsynchronized")
	}
}

func TestPhases(t *testing.T) {
	for _, p := range []Phase{PhaseIdle, PhaseSpawning, PhaseAwaiting, PhaseAggregating} {
		if p.IsTerminal() {
			t.Errorf("%v should not be terminal", p)
		}
	}
	if !PhaseReported.IsTerminal() {
		t.Error("reported should be terminal")
	}
}
