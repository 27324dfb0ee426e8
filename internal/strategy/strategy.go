// Package strategy defines the synchronization disciplines the harness
// compares, and the shared-cell policies among them.
//
// Three kinds wrap a counter.Cell and differ only in how they reach it:
// Unsynchronized (no guard), ExclusiveLock (mutex) and ReadWriteLock
// (rwmutex). The remaining kinds replace the shared cell with message passing
// or joins, so they are described here by Kind but executed by the harness.
package strategy

import (
	"github.com/Iron-Ham/syncbench/internal/counter"
	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/syncutil"
)

// Strategy is an access discipline over a shared accumulator.
type Strategy interface {
	// Kind identifies the discipline.
	Kind() Kind
	// IncrementBy applies n increments to the shared total.
	IncrementBy(n int64)
	// Snapshot returns the current total.
	Snapshot() int64
}

// New constructs the shared-cell strategy for kind over a fresh cell.
// Kinds without a shared cell return ErrNoSharedCell.
func New(kind Kind) (Strategy, error) {
	switch kind {
	case Unsynchronized:
		return &unsynchronized{}, nil
	case ExclusiveLock:
		return &exclusiveLock{}, nil
	case ReadWriteLock:
		return &readWriteLock{}, nil
	default:
		if _, ok := kindNames[kind]; !ok {
			return nil, errors.NewValidationError("unknown strategy kind").
				WithField("strategy").
				WithValue(int(kind)).
				WithCause(errors.ErrUnknownStrategy)
		}
		return nil, errors.NewValidationError(kind.String() + " has no shared counter").
			WithField("strategy").
			WithValue(kind.String()).
			WithCause(errors.ErrNoSharedCell)
	}
}

// NewUnsynchronized returns the unguarded policy. Sequential-join uses it
// directly; the joins are what order its accesses.
func NewUnsynchronized() Strategy {
	return &unsynchronized{}
}

type unsynchronized struct {
	cell counter.Cell
}

func (s *unsynchronized) Kind() Kind          { return Unsynchronized }
func (s *unsynchronized) IncrementBy(n int64) { s.cell.IncrementBy(n) }
func (s *unsynchronized) Snapshot() int64     { return s.cell.Snapshot() }

type exclusiveLock struct {
	mu   syncutil.Mutex
	cell counter.Cell
}

func (s *exclusiveLock) Kind() Kind { return ExclusiveLock }

func (s *exclusiveLock) IncrementBy(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cell.IncrementBy(n)
}

func (s *exclusiveLock) Snapshot() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cell.Snapshot()
}

// readWriteLock holds the write side across a whole IncrementBy batch, so a
// reader only ever sees totals committed at batch boundaries. sync.RWMutex
// blocks new readers once a writer is waiting, which bounds writer
// starvation.
type readWriteLock struct {
	mu   syncutil.RWMutex
	cell counter.Cell
}

func (s *readWriteLock) Kind() Kind { return ReadWriteLock }

func (s *readWriteLock) IncrementBy(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cell.IncrementBy(n)
}

func (s *readWriteLock) Snapshot() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cell.Snapshot()
}
