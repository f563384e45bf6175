// Package abandoning is the Abandoning Runtime (spec.md §4.7, ~20% of the
// spec's implementation budget): a Lane variant that trades the Threads
// Runtime's guaranteed run-to-completion semantics for fault tolerance
// against runaway blocking calls. Every running job is held by a watchdog;
// a job that outlives its execution timeout is abandoned — its caller is
// resumed with a timeout — and the worker thread that was running it is
// leaked rather than waited on, with a fresh one respawned in its place up
// to a configured ceiling.
package abandoning

import (
	"context"
	"sync"
	"time"

	"github.com/ChuLiYu/lanecore/internal/corelane"
	"github.com/ChuLiYu/lanecore/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runtime is the Abandoning Lane implementation.
type Runtime struct {
	mu sync.Mutex

	queue   *queue
	waiters *waiterQueue

	sleepers   int
	isShutdown bool
	nextTicket uint64

	cvWork     *sync.Cond
	cvShutdown *sync.Cond

	spawnedWorkers   int
	activeWorkers    int
	abandonedWorkers int
	exhausted        bool // activeWorkers==0 && spawnedWorkers>=opts.WorkersMax

	executing int64

	opts    Options
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// New constructs and starts an Abandoning Runtime per opts.
func New(opts Options) *Runtime {
	opts = opts.WithDefaults()
	r := &Runtime{
		queue:   newQueue(opts.LaneQueueLimit, opts.Scheduling),
		waiters: newWaiterQueue(opts.LaneAcceptanceWaitersLimit),
		opts:    opts,
		metrics: metrics.NewCollector(nil, "abandoning"),
		logger:  log.With().Str("component", "lane.abandoning").Logger(),
	}
	r.cvWork = sync.NewCond(&r.mu)
	r.cvShutdown = sync.NewCond(&r.mu)

	for i := 0; i < opts.WorkersInitial; i++ {
		r.spawnedWorkers++
		r.activeWorkers++
		go r.runWorker()
	}
	r.reportWorkerGauges()
	return r
}

// Capabilities reports this runtime's truthful, weaker semantics (spec.md
// §4.2): jobs run on dedicated worker threads, but a job that exceeds its
// execution timeout is abandoned rather than guaranteed to run to
// completion.
func (r *Runtime) Capabilities() corelane.Capabilities {
	return corelane.Capabilities{
		ExecutesOnDedicatedThreads: true,
		Semantics:                  corelane.SemanticsAbandonOnExecutionTimeout,
	}
}

// Metrics returns a point-in-time snapshot (spec.md §6).
func (r *Runtime) Metrics() corelane.Metrics { return r.metrics.Snapshot() }

// Run is the Lane Surface's single primitive, identical in acceptance
// shape to the Threads Runtime (spec.md §4.5) but with the Abandoning
// Runtime's worker-exhaustion check folded into admission: once every
// spawned worker up to workers.max has been abandoned, new submissions
// fail overloaded rather than queue forever behind threads that will
// never free up.
func (r *Runtime) Run(ctx context.Context, deadline corelane.Deadline, op func() *corelane.Box) (*corelane.Box, error) {
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
	if r.exhausted {
		r.mu.Unlock()
		r.metrics.RecordOverloaded()
		return nil, corelane.Failure(corelane.ErrOverloaded)
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
		case corelane.StrategyFailFast:
			r.mu.Unlock()
			r.metrics.RecordFailFast()
			return nil, corelane.Failure(corelane.ErrQueueFull)
		default:
			if r.waiters.atCapacity() {
				r.mu.Unlock()
				r.metrics.RecordOverloaded()
				return nil, corelane.Failure(corelane.ErrOverloaded)
			}
			w := newWaiter(j, r.opts.Clock.Now())
			r.waiters.push(w)
			r.metrics.SetAcceptanceWaitersDepth(r.waiters.depth())
			r.mu.Unlock()

			if err := r.awaitAcceptance(ctx, deadline, w); err != nil {
				return nil, err
			}
		}
	}

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
// worker, if any, for every job that lands on the queue — not just the
// empty->non-empty edge, so a burst of pushes onto an already non-empty
// queue can still pull multiple parked workers off of it. Caller must hold
// r.mu.
func (r *Runtime) signalSleeperLocked() {
	if r.sleepers > 0 {
		r.cvWork.Signal()
	}
}

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

// reportWorkerGauges must be called with r.mu held, or immediately after
// construction before other goroutines can observe the runtime.
func (r *Runtime) reportWorkerGauges() {
	r.metrics.SetWorkersSpawned(r.spawnedWorkers)
	r.metrics.SetWorkersActive(r.activeWorkers)
	r.metrics.SetWorkersAbandoned(r.abandonedWorkers)
}

// Shutdown stops accepting new jobs and waits for every worker that is
// still capable of joining to finish its current batch and exit. Workers
// leaked to an abandoned job are, by definition, never joined — Shutdown
// only waits on activeWorkers, which onAbandon already excludes them from
// (spec.md §4.7's "abandoned" workers are not part of the runtime's
// accounted pool once leaked).
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	if r.isShutdown {
		r.mu.Unlock()
		return
	}
	r.isShutdown = true
	r.logger.Debug().Msg("shutdown begin")

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
	r.logger.Debug().Msg("shutdown complete")
}
