// Package threads is the Threads Runtime (spec.md §4.6): the default
// Lane implementation, a bounded-queue, dedicated-thread worker pool with
// an acceptance-waiter queue, transition-based wake signalling, and
// Prometheus metrics. It is the hot path of the Blocking Lane Core (~50%
// of the spec's implementation budget).
package threads

import (
	"context"
	"sync"
	"time"

	"github.com/ChuLiYu/lanecore/internal/corelane"
	"github.com/ChuLiYu/lanecore/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runtime is the default Lane implementation. The state lock below is the
// only coarse lock in the system (spec.md §5): held for O(1) enqueues and
// O(batch) pops, never across a blocking operation.
type Runtime struct {
	mu sync.Mutex

	queue   *queue
	waiters *waiterQueue

	sleepers   int
	isShutdown bool
	nextTicket uint64

	cvWork     *sync.Cond // signalled once per enqueued job; broadcast when shutdown begins
	cvShutdown *sync.Cond // signalled when activeWorkers reaches 0 post-shutdown

	activeWorkers int
	workerWg      sync.WaitGroup
	executing     int64 // atomic: jobs currently running on a worker

	opts    Options
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// New constructs and starts a Threads Runtime per opts (defaults applied
// via Options.WithDefaults).
func New(opts Options) *Runtime {
	opts = opts.WithDefaults()
	r := &Runtime{
		queue:   newQueue(opts.LaneQueueLimit, opts.Scheduling),
		waiters: newWaiterQueue(opts.LaneAcceptanceWaitersLimit),
		opts:    opts,
		metrics: metrics.NewCollector(nil, "threads"),
		logger:  log.With().Str("component", "lane.threads").Logger(),
	}
	r.cvWork = sync.NewCond(&r.mu)
	r.cvShutdown = sync.NewCond(&r.mu)

	for i := 0; i < opts.Workers; i++ {
		r.activeWorkers++
		r.workerWg.Add(1)
		go r.runWorker()
	}
	return r
}

// Capabilities reports this runtime's truthful semantics (spec.md §4.2):
// dedicated OS threads, guaranteed run-to-completion once accepted.
func (r *Runtime) Capabilities() corelane.Capabilities {
	return corelane.Capabilities{
		ExecutesOnDedicatedThreads: true,
		Semantics:                  corelane.SemanticsGuaranteed,
	}
}

// Metrics returns a point-in-time snapshot (spec.md §6).
func (r *Runtime) Metrics() corelane.Metrics { return r.metrics.Snapshot() }

// Run is the Lane Surface's single primitive (spec.md §4.5, §4.6's
// "Acceptance algorithm"): accept op, run it on a dedicated worker thread,
// and return its boxed result — or a Lifecycle error if it never ran.
func (r *Runtime) Run(ctx context.Context, deadline corelane.Deadline, op func() *corelane.Box) (*corelane.Box, error) {
	// Step 1: already cancelled, no allocation yet.
	select {
	case <-ctx.Done():
		return nil, corelane.Cancelled()
	default:
	}

	j := newJob(0, op)

	r.mu.Lock()
	if r.isShutdown {
		r.mu.Unlock()
		return nil, corelane.Shutdown()
	}

	if !r.queue.isSaturated() {
		r.nextTicket++
		j.ticket = r.nextTicket
		j.enqueuedAt = r.opts.Clock.Now()
		edges := r.queue.pushBack(j)
		r.metrics.RecordEnqueue()
		r.emitEdges(edges)
		r.signalSleeperLocked()
		r.mu.Unlock()
	} else {
		switch r.opts.Strategy {
		case StrategyFailFast:
			r.mu.Unlock()
			r.metrics.RecordFailFast()
			return nil, corelane.Failure(corelane.ErrQueueFull)
		default: // StrategyWait
			if r.waiters.atCapacity() {
				r.mu.Unlock()
				r.metrics.RecordOverloaded()
				return nil, corelane.Failure(corelane.ErrOverloaded)
			}
			w := newWaiter(j, r.opts.Clock.Now())
			r.waiters.push(w)
			r.metrics.SetAcceptanceWaitersDepth(r.waiters.depth())
			r.mu.Unlock()

			// The dequeue-side promotion path (spec.md §4.6 step 6)
			// pushes j onto the queue directly under its own lock
			// once a slot frees up; on success we fall straight
			// through to j.wait() below.
			if err := r.awaitAcceptance(ctx, deadline, w); err != nil {
				return nil, err
			}
		}
	}

	// Cancellation hook: a CAS race against the worker, resolved by
	// whichever side wins the terminal transition (spec.md §4.6
	// "Cancellation").
	stop := context.AfterFunc(ctx, func() {
		if j.cas(statePending, stateCancelled) {
			j.finish(nil, corelane.Cancelled())
			r.metrics.RecordCancelled()
		} else if j.cas(stateRunning, stateCancelled) {
			j.finish(nil, corelane.Cancelled())
			r.metrics.RecordCancelled()
		}
	})
	defer stop()

	box, lc := j.wait()
	if lc != nil {
		return nil, lc
	}
	return box, nil
}

// awaitAcceptance suspends the caller as an acceptance waiter until it is
// resumed by promotion, shutdown, deadline expiry, or cancellation
// (invariant A1).
func (r *Runtime) awaitAcceptance(ctx context.Context, deadline corelane.Deadline, w *waiter) error {
	var timerC <-chan time.Time
	if deadline.IsSet() {
		if rem, _ := deadline.Remaining(r.opts.Clock); rem > 0 {
			timer := r.opts.Clock.Timer(rem)
			timerC = timer.C
			defer timer.Stop()
		} else {
			r.cancelWaiter(w, corelane.Timeout())
			<-w.done
			return w.err
		}
	}

	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		r.cancelWaiter(w, corelane.Cancelled())
		<-w.done
		return w.err
	case <-timerC:
		r.cancelWaiter(w, corelane.Timeout())
		<-w.done
		return w.err
	}
}

// cancelWaiter resolves w with lc if it hasn't already been promoted or
// otherwise settled (invariant A1's idempotence, A2's race with
// promotion).
func (r *Runtime) cancelWaiter(w *waiter, lc *corelane.Lifecycle) {
	r.mu.Lock()
	if w.settled {
		r.mu.Unlock()
		return
	}
	r.waiters.remove(w)
	w.resolve(lc)
	r.metrics.SetAcceptanceWaitersDepth(r.waiters.depth())
	r.mu.Unlock()
}

// signalSleeperLocked implements the §S1 wake rule: signal one sleeping
// worker, if any, for every job that lands on the queue. A burst of N
// pushes onto an already non-empty queue must still be able to pull N
// parked workers off of it, so this fires on every successful pushBack —
// not just the empty->non-empty edge — and is a no-op when sleepers == 0,
// because a worker is then guaranteed to re-check the queue before
// parking (invariant W1). Caller must hold r.mu.
func (r *Runtime) signalSleeperLocked() {
	if r.sleepers > 0 {
		r.cvWork.Signal()
	}
}

// promoteWaiter runs under r.mu, called once per freed queue slot
// immediately after a pop. It pushes the head waiter's job onto the queue
// directly — the same lock that decremented queue depth also makes the
// promoted slot countable again (invariant A2) — and resumes the waiter
// with "enqueued" (nil error). A no-op if there is no live waiter or the
// queue has no room (e.g. a concurrent promotion already used the slot).
func (r *Runtime) promoteWaiter() {
	if r.queue.isSaturated() {
		return
	}
	w := r.waiters.popFront()
	if w == nil {
		return
	}
	r.nextTicket++
	w.job.ticket = r.nextTicket
	w.job.enqueuedAt = r.opts.Clock.Now()
	edges := r.queue.pushBack(w.job)
	r.emitEdges(edges)
	r.metrics.RecordEnqueue()
	r.metrics.RecordAcceptancePromoted(r.opts.Clock.Now().Sub(w.registeredAt))
	r.metrics.SetAcceptanceWaitersDepth(r.waiters.depth())
	r.signalSleeperLocked()
	w.resolve(nil)
}

func (r *Runtime) emitEdges(edges []corelane.StateEdge) {
	r.metrics.SetQueueDepth(r.queue.depth())
	if r.opts.OnStateTransition != nil && len(edges) > 0 {
		r.opts.OnStateTransition(edges)
	}
}

// Shutdown stops accepting new jobs and waits for every already-accepted
// job to complete (invariant SH1), then returns. Idempotent.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	if r.isShutdown {
		r.mu.Unlock()
		return
	}
	r.isShutdown = true
	r.logger.Debug().Msg("shutdown begin")

	// Drain every acceptance waiter with shutdownInProgress.
	for {
		w := r.waiters.popFront()
		if w == nil {
			break
		}
		w.resolve(corelane.Shutdown())
	}
	r.metrics.SetAcceptanceWaitersDepth(0)

	r.cvWork.Broadcast()
	for r.activeWorkers > 0 {
		r.cvShutdown.Wait()
	}
	r.mu.Unlock()
	r.workerWg.Wait()
	r.logger.Debug().Msg("shutdown complete")
}
