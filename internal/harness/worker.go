package harness

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/event"
)

// worker is one unit of increment work.
type worker struct {
	id          int
	repetitions int
	batch       bool
	committed   atomic.Int64 // increments applied so far; readable after a timeout
}

func (r *run) newWorker(id int) *worker {
	return &worker{
		id:          id,
		repetitions: r.cfg.Repetitions,
		batch:       r.cfg.Batch,
	}
}

// apply performs the worker's repetitions through incr: either R calls of
// incr(1), or a single incr(R) in batch mode.
func (w *worker) apply(incr func(n int64)) {
	if w.batch {
		if w.repetitions > 0 {
			incr(int64(w.repetitions))
			w.committed.Store(int64(w.repetitions))
		}
		return
	}
	for range w.repetitions {
		incr(1)
		w.committed.Add(1)
	}
}

// exec runs body as worker w. A panic in body (or in the worker hook) is
// recovered and recorded instead of crashing the process, and the completion
// event is published exactly once whether or not body panicked. It reports
// whether body returned normally.
func (r *run) exec(w *worker, body func()) bool {
	r.publish(event.NewWorkerStartedEvent(r.id, w.id))

	recovered := panics.Try(func() {
		if hook := r.h.opts.workerHook; hook != nil {
			hook(w.id)
		}
		body()
	})

	if recovered != nil {
		perr := errors.NewWorkerPanicError(w.id, recovered.Value).WithStack(string(recovered.Stack))
		r.panics.add(perr)
		r.logger.WithWorker(w.id).Error("worker panicked",
			"panic", fmt.Sprint(recovered.Value),
			"committed", w.committed.Load(),
		)
	}
	r.publish(event.NewWorkerCompletedEvent(r.id, w.id, w.committed.Load(), recovered != nil))
	return recovered == nil
}

// committedTotal sums the increments the workers have finished applying. It
// never touches the guarded cell, so it is safe to call while a worker still
// holds the strategy's lock.
func committedTotal(workers []*worker) int64 {
	var total int64
	for _, w := range workers {
		total += w.committed.Load()
	}
	return total
}

// panicLog collects worker panics from concurrent workers.
type panicLog struct {
	mu   sync.Mutex
	errs []*errors.WorkerPanicError
}

func (p *panicLog) add(err *errors.WorkerPanicError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// list returns the recorded panics ordered by worker ID.
func (p *panicLog) list() []*errors.WorkerPanicError {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*errors.WorkerPanicError, len(p.errs))
	copy(out, p.errs)
	slices.SortFunc(out, func(a, b *errors.WorkerPanicError) int {
		return cmp.Compare(a.WorkerID, b.WorkerID)
	})
	return out
}
