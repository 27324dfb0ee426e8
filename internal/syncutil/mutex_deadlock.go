//go:build deadlock

// Package syncutil provides the lock types the synchronization strategies are
// built on, here backed by github.com/sasha-s/go-deadlock.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockDetection is true when built with the deadlock tag.
const DeadlockDetection = true

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// Mutex is a mutual exclusion lock with deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a reader/writer lock with deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}
