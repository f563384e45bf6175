package abandoning

import "time"

// waiter mirrors the Threads Runtime's acceptance waiter: it owns the job
// it is waiting to enqueue, and is resumed exactly once by whichever of
// {promotion, shutdown, cancellation} reaches it first under the runtime
// lock (spec.md §3, invariant A1).
type waiter struct {
	job          *job
	registeredAt time.Time

	done    chan struct{}
	settled bool
	err     error
}

func newWaiter(j *job, registeredAt time.Time) *waiter {
	return &waiter{job: j, registeredAt: registeredAt, done: make(chan struct{})}
}

func (w *waiter) resolve(err error) bool {
	if w.settled {
		return false
	}
	w.settled = true
	w.err = err
	close(w.done)
	return true
}

type waiterQueue struct {
	items []*waiter
	limit int
}

func newWaiterQueue(limit int) *waiterQueue {
	return &waiterQueue{limit: limit}
}

func (wq *waiterQueue) depth() int       { return len(wq.items) }
func (wq *waiterQueue) atCapacity() bool { return len(wq.items) >= wq.limit }

func (wq *waiterQueue) push(w *waiter) {
	wq.items = append(wq.items, w)
}

func (wq *waiterQueue) popFront() *waiter {
	for len(wq.items) > 0 {
		w := wq.items[0]
		wq.items = wq.items[1:]
		if !w.settled {
			return w
		}
	}
	return nil
}

func (wq *waiterQueue) remove(w *waiter) {
	for i, cand := range wq.items {
		if cand == w {
			wq.items = append(wq.items[:i], wq.items[i+1:]...)
			return
		}
	}
}
