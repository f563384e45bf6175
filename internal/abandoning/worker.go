package abandoning

import (
	"sync/atomic"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// runWorker is a dedicated OS-thread's main loop. It differs from the
// Threads Runtime's in one way: a job can end the loop early. If runJob
// reports the job was abandoned by its watchdog, this thread is leaked —
// onAbandon has already removed it from activeWorkers and (if budget
// allowed) spawned its replacement, so this goroutine must exit without
// touching that bookkeeping again.
func (r *Runtime) runWorker() {
	for {
		r.mu.Lock()
		for r.queue.isEmpty() && !r.isShutdown {
			r.sleepers++
			r.cvWork.Wait()
			r.sleepers--
		}
		if r.queue.isEmpty() && r.isShutdown {
			r.mu.Unlock()
			r.exitNormally()
			return
		}

		batch, edges := r.queue.popBatch(r.opts.BatchSize)
		r.emitEdges(edges)
		for range batch {
			r.promoteWaiter()
		}
		r.mu.Unlock()

		for _, j := range batch {
			if r.runJob(j) {
				return
			}
		}
	}
}

// exitNormally is the graceful-shutdown exit path: this worker drained the
// queue and saw isShutdown, so it was never abandoned and its slot should
// be returned to the pool's accounting.
func (r *Runtime) exitNormally() {
	r.mu.Lock()
	r.activeWorkers--
	r.reportWorkerGauges()
	if r.activeWorkers == 0 {
		r.cvShutdown.Broadcast()
	}
	r.mu.Unlock()
}

// runJob executes one job under a watchdog. It returns true if the
// watchdog won the terminal CAS — meaning op() either never returns or
// returned too late to matter, and this worker thread must not be reused.
func (r *Runtime) runJob(j *job) (abandoned bool) {
	if !j.cas(statePending, stateRunning) {
		return false
	}
	j.startedAt = r.opts.Clock.Now()

	// The watchdog is armed before the start is recorded, so StartedTotal
	// never counts a job whose timeout clock is not yet running.
	watchdogDone := make(chan struct{})
	r.spawnWatchdog(j, watchdogDone)

	r.metrics.RecordStart(j.startedAt.Sub(j.enqueuedAt))
	r.metrics.SetExecutingCount(int(atomic.AddInt64(&r.executing, 1)))

	box := j.op() // may never return; the watchdog is this runtime's backstop against exactly that.
	close(watchdogDone)

	j.endedAt = r.opts.Clock.Now()
	r.metrics.SetExecutingCount(int(atomic.AddInt64(&r.executing, -1)))

	if j.cas(stateRunning, stateCompleted) {
		j.finish(box, nil)
		r.metrics.RecordCompleted(j.endedAt.Sub(j.startedAt))
		return false
	}

	// Lost the race: cancellation or the watchdog got there first.
	corelane.Destroy(box)
	return j.wasAbandoned()
}

// spawnWatchdog starts the per-job timer thread (spec.md §4.7): it waits
// up to opts.ExecutionTimeout for watchdogDone to close (op() returned in
// time); on timeout it wins the terminal CAS itself, reports the worker as
// abandoned, and then resumes the caller with a timeout lifecycle, so the
// caller already sees the updated worker accounting.
func (r *Runtime) spawnWatchdog(j *job, watchdogDone <-chan struct{}) {
	clk := r.opts.Clock
	timer := clk.Timer(r.opts.ExecutionTimeout)
	go func() {
		defer timer.Stop()
		select {
		case <-watchdogDone:
			return
		case <-timer.C:
			if j.cas(stateRunning, stateTimedOut) {
				j.markAbandoned()
				r.metrics.RecordTimedOut()
				r.onAbandon()
				j.finish(nil, corelane.Timeout())
			}
		}
	}()
}

// onAbandon updates worker-pool accounting and, budget permitting, spawns
// a replacement (spec.md §4.7: "if spawned < workers.max and not shutting
// down, respawn"). Once spawnedWorkers reaches workers.max and every
// worker has been abandoned, the runtime marks itself exhausted so new
// submissions fail fast instead of queuing behind threads that will never
// come back.
func (r *Runtime) onAbandon() {
	r.mu.Lock()
	r.abandonedWorkers++
	r.activeWorkers--

	respawn := !r.isShutdown && r.spawnedWorkers < r.opts.WorkersMax
	if respawn {
		r.spawnedWorkers++
		r.activeWorkers++
	}
	r.exhausted = r.activeWorkers == 0 && r.spawnedWorkers >= r.opts.WorkersMax
	r.reportWorkerGauges()

	if r.activeWorkers == 0 {
		r.cvShutdown.Broadcast()
	}
	r.mu.Unlock()

	r.logger.Warn().
		Bool("respawned", respawn).
		Int("spawnedWorkers", r.spawnedWorkers).
		Msg("worker abandoned: execution timeout exceeded")

	if respawn {
		go r.runWorker()
	}
}
