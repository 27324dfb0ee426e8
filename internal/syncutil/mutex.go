//go:build !deadlock

// Package syncutil provides the lock types the synchronization strategies are
// built on. By default they are the standard sync.Mutex and sync.RWMutex.
// Build with -tags=deadlock to swap in github.com/sasha-s/go-deadlock, which
// reports lock-order inversions and locks held past a timeout.
package syncutil

import "sync"

// DeadlockDetection is true when built with the deadlock tag.
const DeadlockDetection = false

// Mutex wraps sync.Mutex.
//
//nolint:gocritic // embedding exposes Lock/Unlock/TryLock
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex.
//
//nolint:gocritic // embedding exposes the full RWMutex method set
type RWMutex struct {
	sync.RWMutex
}
