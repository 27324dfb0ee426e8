package harness

import (
	"context"
	"sync"
	"sync/atomic"
)

// runDeadlock is the negative control. Every worker takes the lock, performs
// its increments and returns without unlocking or signalling the condition.
// The coordinator waits on the condition for the total to reach W*R, so at
// most one worker ever gets in and the wait can only end by timeout.
//
// The lock is a plain sync.Mutex rather than a syncutil one: the deadlock is
// the point of the run, and a detecting mutex would abort the process.
//
// Neither the workers nor the waiting coordinator goroutine are ever
// reclaimed. A caller running this kind repeatedly leaks W+1 goroutines per
// run.
func (r *run) runDeadlock(ctx context.Context) (*execution, error) {
	var (
		mu       sync.Mutex
		cond     = sync.NewCond(&mu)
		value    int64
		checkins int

		// Written under the leaked lock, read by the coordinator after it
		// gives up, so they must not depend on that lock.
		progress atomic.Int64
		finished atomic.Int64
	)

	for id := range r.cfg.Workers {
		w := r.newWorker(id)
		r.spawn(func() {
			r.exec(w, func() {
				mu.Lock()
				checkins++
				w.apply(func(n int64) {
					value += n
					progress.Add(n)
				})
				finished.Add(1)
			})
		})
	}
	r.transition(PhaseAwaiting)

	want := r.cfg.Workers
	expected := r.cfg.Expected()
	satisfied := make(chan struct{})
	go func() {
		mu.Lock()
		for checkins < want || value < expected {
			cond.Wait()
		}
		mu.Unlock()
		close(satisfied)
	}()

	timedOut, err := r.await(ctx, satisfied)
	if err != nil {
		return nil, err
	}

	return &execution{
		observed:  progress.Load(),
		completed: int(finished.Load()),
		timedOut:  timedOut,
	}, nil
}
