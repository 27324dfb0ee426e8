// Package internal contains integration tests that verify the packages work
// together: configuration feeding the harness, and harness and bench events
// flowing through a shared bus.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/syncbench/internal/bench"
	"github.com/Iron-Ham/syncbench/internal/config"
	"github.com/Iron-Ham/syncbench/internal/event"
	"github.com/Iron-Ham/syncbench/internal/harness"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// eventLog collects events from a bus subscription.
type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) handle(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) countByType() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range l.events {
		counts[e.EventType()]++
	}
	return counts
}

func TestConfigDrivesHarness(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	config.SetDefaults()
	viper.Set("harness.strategy", "rwmutex")
	viper.Set("harness.workers", 6)
	viper.Set("harness.repetitions", 250)
	viper.Set("harness.wait_timeout", "5s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() failed: %v", err)
	}
	kind, err := strategy.ParseKind(cfg.Harness.Strategy)
	if err != nil {
		t.Fatalf("ParseKind(%q) failed: %v", cfg.Harness.Strategy, err)
	}

	bus := event.NewBus()
	var reported []event.RunReportedEvent
	if _, err := bus.Subscribe(event.TypeRunReported, func(e event.Event) {
		reported = append(reported, e.(event.RunReportedEvent))
	}); err != nil {
		t.Fatal(err)
	}

	h, err := harness.New(harness.Config{
		Strategy:    kind,
		Workers:     cfg.Harness.Workers,
		Repetitions: cfg.Harness.Repetitions,
		WaitTimeout: cfg.Harness.WaitTimeout,
		Batch:       cfg.Harness.Batch,
	}, harness.WithEventBus(bus))
	if err != nil {
		t.Fatalf("harness.New() failed: %v", err)
	}

	res, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Strategy != strategy.ReadWriteLock || !res.Passed() || res.ObservedTotal != 1500 {
		t.Errorf("result = %+v", res)
	}

	if len(reported) != 1 {
		t.Fatalf("got %d run reports, want 1", len(reported))
	}
	if got := reported[0]; got.Strategy != "rw-lock" || got.Observed != 1500 || got.Expected != 1500 || got.Outcome != "match" {
		t.Errorf("report event = %+v", got)
	}
}

func TestBenchEventsThroughSharedBus(t *testing.T) {
	bus := event.NewBus()
	log := &eventLog{}
	bus.SubscribeAll(log.handle)

	suite := bench.Suite{
		Kinds:       []strategy.Kind{strategy.ExclusiveLock, strategy.SequentialJoin},
		Workers:     3,
		Repetitions: 20,
		Trials:      2,
		WaitTimeout: 5 * time.Second,
	}
	sums, err := suite.Run(context.Background(), bench.WithEventBus(bus))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	for _, sum := range sums {
		if !sum.Reliable() {
			t.Errorf("%v matched %d/%d", sum.Strategy, sum.Matches, sum.Trials)
		}
	}

	// Four runs, each with four phase changes, three workers and one report
	runs := len(suite.Kinds) * suite.Trials
	want := map[string]int{
		event.TypePhaseChanged:    runs * 4,
		event.TypeWorkerStarted:   runs * suite.Workers,
		event.TypeWorkerCompleted: runs * suite.Workers,
		event.TypeRunReported:     runs,
		event.TypeTrialCompleted:  runs,
	}
	got := log.countByType()
	for typ, n := range want {
		if got[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, got[typ], n)
		}
	}
}

func TestDeadlockAndUnsynchronizedReportsDoNotViolate(t *testing.T) {
	for _, kind := range []strategy.Kind{strategy.Deadlock, strategy.Unsynchronized} {
		t.Run(kind.String(), func(t *testing.T) {
			h, err := harness.New(harness.Config{
				Strategy:    kind,
				Workers:     2,
				Repetitions: 1000,
				WaitTimeout: 50 * time.Millisecond,
			})
			if err != nil {
				t.Fatalf("harness.New() failed: %v", err)
			}
			res, err := h.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			if res.Violates() {
				t.Errorf("%v outcome %v should not count as a violation", kind, res.Outcome)
			}
			if kind == strategy.Deadlock && res.Outcome != harness.OutcomeDeadlockSuspected {
				t.Errorf("deadlock outcome = %v", res.Outcome)
			}
		})
	}
}
