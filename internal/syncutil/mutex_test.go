package syncutil

import (
	"sync"
	"testing"
)

func TestMutex_SatisfiesLocker(t *testing.T) {
	var mu Mutex
	var _ sync.Locker = &mu

	var rw RWMutex
	var _ sync.Locker = &rw
	var _ sync.Locker = rw.RLocker()
}

func TestMutex_Serializes(t *testing.T) {
	var (
		mu    Mutex
		wg    sync.WaitGroup
		total int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if total != 8000 {
		t.Errorf("total = %d, want 8000", total)
	}
}

func TestRWMutex_SharedReaders(t *testing.T) {
	var rw RWMutex

	rw.RLock()
	done := make(chan struct{})
	go func() {
		rw.RLock()
		rw.RUnlock()
		close(done)
	}()
	<-done
	rw.RUnlock()

	rw.Lock()
	rw.Unlock()
}
