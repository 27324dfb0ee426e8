package harness

import (
	"context"

	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// runSequential spawns worker i, joins it, and only then spawns worker i+1.
// The workers share an unguarded counter; every access is ordered by the
// join that precedes the next spawn, so the total is exact even though each
// worker runs on its own goroutine.
//
// The whole chain shares one deadline. A worker that does not finish in time
// ends the run with a timeout and no further workers are spawned.
func (r *run) runSequential(ctx context.Context) (*execution, error) {
	s := strategy.NewUnsynchronized()

	completed := 0
	for id := range r.cfg.Workers {
		w := r.newWorker(id)
		var ok bool
		exited := r.spawn(func() {
			ok = r.exec(w, func() { w.apply(s.IncrementBy) })
		})
		if id == 0 {
			r.transition(PhaseAwaiting)
		}

		timedOut, err := r.await(ctx, exited)
		if err != nil {
			return nil, err
		}
		if timedOut {
			return &execution{observed: s.Snapshot(), completed: completed, timedOut: true}, nil
		}
		if ok {
			completed++
		}
	}
	if r.cfg.Workers == 0 {
		r.transition(PhaseAwaiting)
	}

	return &execution{observed: s.Snapshot(), completed: completed}, nil
}
