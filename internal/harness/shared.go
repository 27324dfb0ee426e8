package harness

import (
	"context"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// runShared drives the shared-cell kinds: W workers increment one counter
// concurrently through the strategy's guard, and the coordinator joins them
// all before reading the total. After a timeout a worker may still hold the
// guard, so the total comes from the workers' committed counts instead.
func (r *run) runShared(ctx context.Context) (*execution, error) {
	s, err := strategy.New(r.cfg.Strategy)
	if err != nil {
		return nil, errors.NewHarnessError("constructing strategy", err).
			WithStrategy(r.cfg.Strategy.String()).
			WithPhase(PhaseSpawning.String())
	}

	var (
		wg        conc.WaitGroup
		completed atomic.Int64
		workers   = make([]*worker, r.cfg.Workers)
	)
	for id := range r.cfg.Workers {
		w := r.newWorker(id)
		workers[id] = w
		wg.Go(func() {
			if r.exec(w, func() { w.apply(s.IncrementBy) }) {
				completed.Add(1)
			}
		})
	}

	r.transition(PhaseAwaiting)
	timedOut, err := r.await(ctx, r.joined(&wg))
	if err != nil {
		return nil, err
	}

	observed := committedTotal(workers)
	if !timedOut {
		observed = s.Snapshot()
	}
	return &execution{
		observed:  observed,
		completed: int(completed.Load()),
		timedOut:  timedOut,
	}, nil
}
