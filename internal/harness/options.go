package harness

import (
	"github.com/Iron-Ham/syncbench/internal/event"
	"github.com/Iron-Ham/syncbench/internal/logging"
)

// Option configures a Harness.
type Option func(*options)

// options holds optional settings for the Harness.
type options struct {
	logger     *logging.Logger
	bus        *event.Bus
	runID      string
	workerHook func(workerID int)
}

// WithLogger sets the logger. Runs log under a child logger carrying the run
// ID and strategy name.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventBus publishes phase, worker and report events on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithRunID fixes the run ID instead of generating a random one per run.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithWorkerHook calls hook inside each worker, before its first increment.
// A panic raised by hook is captured like any other worker panic.
func WithWorkerHook(hook func(workerID int)) Option {
	return func(o *options) {
		o.workerHook = hook
	}
}
