// Package errors provides centralized error definitions and error handling utilities
// for syncbench. It defines harness-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Outcome errors describe why a harness run did not report a match:
//   - InvariantViolationError: observed total differs from the expected total
//   - DeadlockSuspectedError: the coordinator's bounded wait elapsed
//   - WorkerPanicError: a worker panicked before finishing its repetitions
//
// Semantic errors represent common error conditions:
//   - HarnessError: a failure tied to a coordinator phase
//   - ValidationError: invalid harness configuration
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewInvariantViolationError("exclusive-lock", 999_998, 1_000_000)
//	err := errors.NewDeadlockSuspectedError("deadlock", 100*time.Millisecond).WithCompleted(1, 2)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDeadlockSuspected) { ... }
//
//	var inv *errors.InvariantViolationError
//	if errors.As(err, &inv) { fmt.Println(inv.Lost()) }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: the run may report differently on another trial
//   - UserFacing: safe to display to users
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Outcome sentinel errors
var (
	// ErrInvariantViolation indicates the observed total differs from W*R.
	ErrInvariantViolation = New("invariant violation")
	// ErrDeadlockSuspected indicates the coordinator gave up waiting for completion signals.
	ErrDeadlockSuspected = New("deadlock suspected")
	// ErrWorkerPanic indicates a worker panicked before signalling completion.
	ErrWorkerPanic = New("worker panicked")
)

// Strategy sentinel errors
var (
	// ErrUnknownStrategy indicates a strategy name that does not map to a kind.
	ErrUnknownStrategy = New("unknown strategy")
	// ErrNoSharedCell indicates a coordination discipline with no shared counter.
	ErrNoSharedCell = New("strategy has no shared counter")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BenchError is the base interface for all syncbench errors.
type BenchError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if another trial might produce a different outcome.
	IsRetryable() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// formatContext renders "kind [k=v, ...]: message: cause".
func formatContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Outcome Errors
// -----------------------------------------------------------------------------

// InvariantViolationError reports a run whose observed total is not W*R.
//
// Example:
//
//	err := errors.NewInvariantViolationError("unsynchronized", 612_004, 1_000_000)
//	fmt.Println(err) // "invariant violation [strategy=unsynchronized]: observed 612004, expected 1000000 (lost 387996)"
type InvariantViolationError struct {
	baseError
	Strategy string
	Observed int64
	Expected int64
}

// NewInvariantViolationError creates a new InvariantViolationError.
// Lost updates are retryable in the sense that another trial may come out
// differently.
func NewInvariantViolationError(strategy string, observed, expected int64) *InvariantViolationError {
	return &InvariantViolationError{
		baseError: baseError{
			message:   fmt.Sprintf("observed %d, expected %d (lost %d)", observed, expected, expected-observed),
			cause:     ErrInvariantViolation,
			severity:  SeverityError,
			retryable: true,
		},
		Strategy: strategy,
		Observed: observed,
		Expected: expected,
	}
}

// WithSeverity sets the error severity.
func (e *InvariantViolationError) WithSeverity(s Severity) *InvariantViolationError {
	e.severity = s
	return e
}

// Lost returns how many increments went missing.
func (e *InvariantViolationError) Lost() int64 {
	return e.Expected - e.Observed
}

// Error returns the formatted error message.
func (e *InvariantViolationError) Error() string {
	var parts []string
	if e.Strategy != "" {
		parts = append(parts, fmt.Sprintf("strategy=%s", e.Strategy))
	}
	return formatContext("invariant violation", parts, e.message, nil)
}

// Is checks if this error matches the target.
func (e *InvariantViolationError) Is(target error) bool {
	if _, ok := target.(*InvariantViolationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DeadlockSuspectedError reports a coordinator wait that elapsed before every
// completion signal arrived.
type DeadlockSuspectedError struct {
	baseError
	Strategy  string
	Waited    time.Duration
	Completed int
	Workers   int
}

// NewDeadlockSuspectedError creates a new DeadlockSuspectedError.
func NewDeadlockSuspectedError(strategy string, waited time.Duration) *DeadlockSuspectedError {
	return &DeadlockSuspectedError{
		baseError: baseError{
			message:   fmt.Sprintf("no completion after %s", waited),
			cause:     ErrDeadlockSuspected,
			severity:  SeverityCritical,
			retryable: false,
		},
		Strategy: strategy,
		Waited:   waited,
	}
}

// WithCompleted records how many of the workers signalled completion.
func (e *DeadlockSuspectedError) WithCompleted(completed, workers int) *DeadlockSuspectedError {
	e.Completed = completed
	e.Workers = workers
	return e
}

// WithSeverity sets the error severity.
func (e *DeadlockSuspectedError) WithSeverity(s Severity) *DeadlockSuspectedError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *DeadlockSuspectedError) Error() string {
	var parts []string
	if e.Strategy != "" {
		parts = append(parts, fmt.Sprintf("strategy=%s", e.Strategy))
	}
	if e.Workers > 0 {
		parts = append(parts, fmt.Sprintf("completed=%d/%d", e.Completed, e.Workers))
	}
	return formatContext("deadlock suspected", parts, e.message, nil)
}

// Is checks if this error matches the target.
func (e *DeadlockSuspectedError) Is(target error) bool {
	if _, ok := target.(*DeadlockSuspectedError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// WorkerPanicError reports a worker that panicked mid-run.
type WorkerPanicError struct {
	baseError
	WorkerID int
	Value    any
	Stack    string
}

// NewWorkerPanicError creates a new WorkerPanicError.
func NewWorkerPanicError(workerID int, value any) *WorkerPanicError {
	return &WorkerPanicError{
		baseError: baseError{
			message:   fmt.Sprintf("panic: %v", value),
			cause:     ErrWorkerPanic,
			severity:  SeverityCritical,
			retryable: false,
		},
		WorkerID: workerID,
		Value:    value,
	}
}

// WithStack attaches the goroutine stack captured at recovery.
func (e *WorkerPanicError) WithStack(stack string) *WorkerPanicError {
	e.Stack = stack
	return e
}

// Error returns the formatted error message.
func (e *WorkerPanicError) Error() string {
	parts := []string{fmt.Sprintf("worker=%d", e.WorkerID)}
	return formatContext("worker panic", parts, e.message, nil)
}

// Is checks if this error matches the target.
func (e *WorkerPanicError) Is(target error) bool {
	if _, ok := target.(*WorkerPanicError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// HarnessError represents a coordinator failure tied to a phase.
//
// Example:
//
//	err := errors.NewHarnessError("wait aborted", errors.ErrCanceled).WithPhase("awaiting")
type HarnessError struct {
	baseError
	Strategy string
	Phase    string
}

// NewHarnessError creates a new HarnessError.
func NewHarnessError(message string, cause error) *HarnessError {
	return &HarnessError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: false,
		},
	}
}

// WithStrategy adds a strategy name to the error context.
func (e *HarnessError) WithStrategy(strategy string) *HarnessError {
	e.Strategy = strategy
	return e
}

// WithPhase adds a coordinator phase to the error context.
func (e *HarnessError) WithPhase(phase string) *HarnessError {
	e.Phase = phase
	return e
}

// Error returns the formatted error message.
func (e *HarnessError) Error() string {
	var parts []string
	if e.Strategy != "" {
		parts = append(parts, fmt.Sprintf("strategy=%s", e.Strategy))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	return formatContext("harness error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *HarnessError) Is(target error) bool {
	if _, ok := target.(*HarnessError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("must be non-negative").WithField("workers").WithValue(-1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:   message,
			cause:     ErrInvalidInput,
			severity:  SeverityWarning,
			retryable: false,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation error")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" [field=%s]", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.message)
	if e.Value != nil {
		sb.WriteString(fmt.Sprintf(" (got: %v)", e.Value))
	}
	return sb.String()
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether any error in the chain is marked retryable.
func IsRetryable(err error) bool {
	var be BenchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	return false
}

// GetSeverity returns the severity of the first BenchError in the chain,
// defaulting to SeverityError for foreign errors.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var be BenchError
	if errors.As(err, &be) {
		return be.Severity()
	}
	return SeverityError
}

// IsTimeout reports whether the error represents a bounded wait elapsing.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrDeadlockSuspected)
}
