// Package harness is the coordinator of a synchronization benchmark run.
//
// A run fans W workers out over R increments each, applies one
// [strategy.Kind] to the shared accumulator and checks the final total
// against W*R.
//
// # Phases
//
// Every run moves through idle → spawning → awaiting-completion →
// aggregating → reported. Each transition is logged at debug level and
// published on the optional [event.Bus] as a harness.phase event. The
// awaiting phase is bounded by [Config.WaitTimeout] and by the context
// passed to [Harness.Run].
//
// # Strategies
//
// The shared-cell kinds (unsynchronized, exclusive-lock, rw-lock) run all
// workers in parallel against one counter. channel-rendezvous gives each
// worker a private accumulator and folds one partial per worker.
// channel-relay and sequential-join serialize the workers with joins.
// deadlock never completes and exists to exercise the bounded wait.
//
// # Outcomes
//
// A finished run is reported as match, mismatch, deadlock-suspected or
// worker-panic. Only cancellation of the context is returned as an error.
//
// # Usage
//
//	h, err := harness.New(harness.Config{
//	    Strategy:    strategy.ExclusiveLock,
//	    Workers:     100,
//	    Repetitions: 10000,
//	    WaitTimeout: 30 * time.Second,
//	}, harness.WithLogger(logger), harness.WithEventBus(bus))
//	if err != nil {
//	    return err
//	}
//	res, err := h.Run(ctx)
package harness
