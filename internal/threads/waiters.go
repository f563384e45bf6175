package threads

import "time"

// waiter is an Acceptance Waiter (spec.md §3): a caller suspended because
// the queue was full under the wait strategy. It already owns the job it
// is waiting to enqueue; the dequeue-side promotion path pushes that job
// onto the queue directly, under the same lock that freed the slot
// (invariant A2), so there is no second round-trip back to the caller.
//
// It is resumed exactly once (invariant A1), by whichever of
// {promotion, shutdown, cancellation} reaches it first under the runtime's
// state lock.
type waiter struct {
	job          *job
	registeredAt time.Time

	done    chan struct{}
	settled bool // true once resumed; guards idempotent cancel-vs-promote races
	err     error
}

func newWaiter(j *job, registeredAt time.Time) *waiter {
	return &waiter{job: j, registeredAt: registeredAt, done: make(chan struct{})}
}

// resolve resumes the waiter exactly once. Callers must hold the runtime
// lock. Returns false if the waiter was already settled (idempotent).
func (w *waiter) resolve(err error) bool {
	if w.settled {
		return false
	}
	w.settled = true
	w.err = err
	close(w.done)
	return true
}

// waiterQueue is the FIFO of pending acceptance waiters, capped at
// laneAcceptanceWaitersLimit. All methods assume the runtime lock is held.
type waiterQueue struct {
	items []*waiter
	limit int
}

func newWaiterQueue(limit int) *waiterQueue {
	return &waiterQueue{limit: limit}
}

func (wq *waiterQueue) depth() int { return len(wq.items) }

func (wq *waiterQueue) atCapacity() bool { return len(wq.items) >= wq.limit }

func (wq *waiterQueue) push(w *waiter) {
	wq.items = append(wq.items, w)
}

// popFront removes and returns the head waiter, or nil if empty. Used by
// the dequeue-side promotion path (spec.md §4.6).
func (wq *waiterQueue) popFront() *waiter {
	for len(wq.items) > 0 {
		w := wq.items[0]
		wq.items = wq.items[1:]
		if !w.settled {
			return w
		}
		// Already settled by a concurrent cancellation; skip it rather
		// than promote a dead waiter.
	}
	return nil
}

// remove unlinks w if still present. Idempotent: a concurrent popFront may
// have already removed it (invariant A2's promotion race).
func (wq *waiterQueue) remove(w *waiter) {
	for i, cand := range wq.items {
		if cand == w {
			wq.items = append(wq.items[:i], wq.items[i+1:]...)
			return
		}
	}
}
