package threads

import (
	"sync/atomic"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// runWorker is a single dedicated OS-thread's main loop (spec.md §4.6
// "Worker loop"): park until work is available or shutdown, drain up to a
// batch, execute every job sequentially, and race the terminal CAS against
// cancellation before resuming the caller.
func (r *Runtime) runWorker() {
	defer func() {
		r.mu.Lock()
		r.activeWorkers--
		if r.activeWorkers == 0 {
			r.cvShutdown.Broadcast()
		}
		r.mu.Unlock()
		r.workerWg.Done()
	}()

	for {
		r.mu.Lock()
		for r.queue.isEmpty() && !r.isShutdown {
			r.sleepers++
			r.cvWork.Wait() // invariant W1: sleepers++ and the re-check
			r.sleepers--     // both happen under r.mu, so no enqueue is missed.
		}
		if r.queue.isEmpty() && r.isShutdown {
			r.mu.Unlock()
			return
		}

		batch, edges := r.queue.popBatch(r.opts.BatchSize)
		r.emitEdges(edges)
		// Each popped job frees exactly one unit of queue capacity;
		// promote up to that many acceptance waiters, under the same
		// lock, before releasing it (invariant A2).
		for range batch {
			r.promoteWaiter()
		}
		r.mu.Unlock()

		for _, j := range batch {
			r.runJob(j)
		}
	}
}

func (r *Runtime) runJob(j *job) {
	if !j.cas(statePending, stateRunning) {
		// Lost to a cancellation that fired before we could start it;
		// nothing was ever allocated on this side.
		return
	}
	j.startedAt = r.opts.Clock.Now()
	r.metrics.RecordStart(j.startedAt.Sub(j.enqueuedAt))
	r.metrics.SetExecutingCount(int(atomic.AddInt64(&r.executing, 1)))

	box := j.op() // may block arbitrarily; this is the syscall the whole system exists to isolate.

	j.endedAt = r.opts.Clock.Now()
	r.metrics.SetExecutingCount(int(atomic.AddInt64(&r.executing, -1)))
	if j.cas(stateRunning, stateCompleted) {
		// Record before resuming the caller, so a caller that reads
		// Metrics() right after Run returns already sees this completion.
		r.metrics.RecordCompleted(j.endedAt.Sub(j.startedAt))
		j.finish(box, nil)
	} else {
		// Lost the race: cancellation already moved this job to
		// stateCancelled after start (spec.md §5 "After start"). The
		// caller already saw `cancellation`; this box is ours to
		// destroy (invariant B2).
		corelane.Destroy(box)
	}
}
