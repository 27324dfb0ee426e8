// Package event provides a pub-sub event bus that lets the harness and the
// bench suite report progress without depending on whoever is listening.
//
// # Main Types
//
//   - [Event]: Interface that all events implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub dispatcher with glob subscriptions
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Harness:
//   - [PhaseChangedEvent]: coordinator moved between Idle, Spawning,
//     AwaitingCompletion, Aggregating and Reported
//   - [RunReportedEvent]: the single outcome of a run
//
// Worker:
//   - [WorkerStartedEvent], [WorkerCompletedEvent]
//
// Bench:
//   - [TrialCompletedEvent]
//
// # Thread Safety
//
// The [Bus] is safe for concurrent use. Worker events are published from
// worker goroutines, so handlers must tolerate concurrent calls. A panicking
// handler is recovered and does not stop delivery to the others.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe("worker.*", func(e event.Event) {
//	    if done, ok := e.(event.WorkerCompletedEvent); ok {
//	        log.Printf("worker %d committed %d", done.WorkerID, done.Increments)
//	    }
//	})
//	h, _ := harness.New(cfg, harness.WithEventBus(bus))
package event
