package harness

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
)

// Fold sums worker partials. Addition is commutative, so the result does not
// depend on the order in which partials arrived.
func Fold(partials []int64) int64 {
	var total int64
	for _, p := range partials {
		total += p
	}
	return total
}

// runRendezvous gives every worker a private accumulator. Each worker sends
// exactly one partial on a send-only channel; the coordinator owns the only
// receiving end and folds the partials once all W have arrived.
//
// The channel is buffered to W so that no worker blocks on its send, even
// after the coordinator has stopped receiving.
func (r *run) runRendezvous(ctx context.Context) (*execution, error) {
	partials := make(chan int64, r.cfg.Workers)

	var wg conc.WaitGroup
	for id := range r.cfg.Workers {
		w := r.newWorker(id)
		wg.Go(func() {
			r.exec(w, func() { r.deliverPartial(w, partials) })
		})
	}

	r.transition(PhaseAwaiting)
	received, timedOut, err := r.receivePartials(ctx, partials, r.joined(&wg))
	if err != nil {
		return nil, err
	}

	return &execution{
		observed:  Fold(received),
		completed: len(received),
		timedOut:  timedOut,
	}, nil
}

// deliverPartial accumulates locally and sends the single partial result.
func (r *run) deliverPartial(w *worker, out chan<- int64) {
	var local int64
	w.apply(func(n int64) { local += n })
	out <- local
}

// receivePartials collects up to W partials. It stops early, without a
// timeout, once every worker has exited and the buffer is drained, which
// happens when a worker panicked before sending.
func (r *run) receivePartials(ctx context.Context, in <-chan int64, exited <-chan struct{}) ([]int64, bool, error) {
	want := r.cfg.Workers
	received := make([]int64, 0, want)
	if want == 0 {
		return received, false, nil
	}

	timer := time.NewTimer(time.Until(r.deadline))
	defer timer.Stop()

	for len(received) < want {
		select {
		case p := <-in:
			received = append(received, p)
		case <-exited:
			return drain(in, received), false, nil
		case <-timer.C:
			return received, true, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	return received, false, nil
}

// drain appends every partial already buffered in in.
func drain(in <-chan int64, received []int64) []int64 {
	for {
		select {
		case p := <-in:
			received = append(received, p)
		default:
			return received
		}
	}
}

// runRelay passes the running total through the workers one at a time. The
// coordinator hands worker i a copy of the total, the worker adds its
// repetitions to that copy and replies on a fresh channel, and only then is
// worker i+1 spawned. No state is shared, so the joins alone order the
// increments.
func (r *run) runRelay(ctx context.Context) (*execution, error) {
	var (
		total     int64
		completed int
	)
	for id := range r.cfg.Workers {
		w := r.newWorker(id)
		reply := make(chan int64, 1)
		seed := total
		exited := r.spawn(func() {
			r.exec(w, func() { r.relayStep(w, seed, reply) })
		})
		if id == 0 {
			r.transition(PhaseAwaiting)
		}

		next, ok, timedOut, err := r.awaitReply(ctx, reply, exited)
		if err != nil {
			return nil, err
		}
		if timedOut {
			return &execution{observed: total, completed: completed, timedOut: true}, nil
		}
		if ok {
			total = next
			completed++
		}
	}
	if r.cfg.Workers == 0 {
		r.transition(PhaseAwaiting)
	}
	return &execution{observed: total, completed: completed}, nil
}

func (r *run) relayStep(w *worker, seed int64, reply chan<- int64) {
	running := seed
	w.apply(func(n int64) { running += n })
	reply <- running
}

// awaitReply waits for one relay worker. ok is false if the worker exited
// without replying.
func (r *run) awaitReply(ctx context.Context, reply <-chan int64, exited <-chan struct{}) (total int64, ok, timedOut bool, err error) {
	timer := time.NewTimer(time.Until(r.deadline))
	defer timer.Stop()

	select {
	case v := <-reply:
		return v, true, false, nil
	case <-exited:
		// The reply is buffered, so it may be ready alongside exited.
		select {
		case v := <-reply:
			return v, true, false, nil
		default:
			return 0, false, false, nil
		}
	case <-timer.C:
		return 0, false, true, nil
	case <-ctx.Done():
		return 0, false, false, ctx.Err()
	}
}
