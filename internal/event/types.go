package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier such as "worker.completed".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypePhaseChanged    = "harness.phase"
	TypeRunReported     = "harness.reported"
	TypeWorkerStarted   = "worker.started"
	TypeWorkerCompleted = "worker.completed"
	TypeTrialCompleted  = "bench.trial"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Harness Events
// -----------------------------------------------------------------------------

// PhaseChangedEvent is emitted on every coordinator state transition.
type PhaseChangedEvent struct {
	baseEvent
	RunID    string
	Strategy string
	From     string
	To       string
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(runID, strategy, from, to string) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent: newBaseEvent(TypePhaseChanged),
		RunID:     runID,
		Strategy:  strategy,
		From:      from,
		To:        to,
	}
}

// RunReportedEvent is emitted once per run when the coordinator reaches Reported.
type RunReportedEvent struct {
	baseEvent
	RunID    string
	Strategy string
	Outcome  string
	Observed int64
	Expected int64
	Duration time.Duration
}

// NewRunReportedEvent creates a RunReportedEvent.
func NewRunReportedEvent(runID, strategy, outcome string, observed, expected int64, d time.Duration) RunReportedEvent {
	return RunReportedEvent{
		baseEvent: newBaseEvent(TypeRunReported),
		RunID:     runID,
		Strategy:  strategy,
		Outcome:   outcome,
		Observed:  observed,
		Expected:  expected,
		Duration:  d,
	}
}

// -----------------------------------------------------------------------------
// Worker Events
// -----------------------------------------------------------------------------

// WorkerStartedEvent is emitted when a worker goroutine begins its repetitions.
type WorkerStartedEvent struct {
	baseEvent
	RunID    string
	WorkerID int
}

// NewWorkerStartedEvent creates a WorkerStartedEvent.
func NewWorkerStartedEvent(runID string, workerID int) WorkerStartedEvent {
	return WorkerStartedEvent{
		baseEvent: newBaseEvent(TypeWorkerStarted),
		RunID:     runID,
		WorkerID:  workerID,
	}
}

// WorkerCompletedEvent is emitted when a worker returns, including when it
// panicked. Workers blocked forever on a leaked lock never emit one.
type WorkerCompletedEvent struct {
	baseEvent
	RunID      string
	WorkerID   int
	Increments int64
	Panicked   bool
}

// NewWorkerCompletedEvent creates a WorkerCompletedEvent.
func NewWorkerCompletedEvent(runID string, workerID int, increments int64, panicked bool) WorkerCompletedEvent {
	return WorkerCompletedEvent{
		baseEvent:  newBaseEvent(TypeWorkerCompleted),
		RunID:      runID,
		WorkerID:   workerID,
		Increments: increments,
		Panicked:   panicked,
	}
}

// -----------------------------------------------------------------------------
// Bench Events
// -----------------------------------------------------------------------------

// TrialCompletedEvent is emitted by the bench suite after each trial.
type TrialCompletedEvent struct {
	baseEvent
	Strategy string
	Trial    int
	Trials   int
	Outcome  string
}

// NewTrialCompletedEvent creates a TrialCompletedEvent.
func NewTrialCompletedEvent(strategy string, trial, trials int, outcome string) TrialCompletedEvent {
	return TrialCompletedEvent{
		baseEvent: newBaseEvent(TypeTrialCompleted),
		Strategy:  strategy,
		Trial:     trial,
		Trials:    trials,
		Outcome:   outcome,
	}
}
