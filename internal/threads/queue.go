package threads

import "github.com/ChuLiYu/lanecore/internal/corelane"

// Scheduling selects the worker-side pop order. It never affects
// acceptance order (spec.md §4.6).
type Scheduling int

const (
	SchedulingFIFO Scheduling = iota
	SchedulingLIFO
)

// queue is the bounded sequence of jobs waiting to be dispatched to a
// worker (spec.md §3). Callers must hold the runtime's state lock for
// every method below — queue itself does no locking.
type queue struct {
	items      []*job
	limit      int
	scheduling Scheduling
}

func newQueue(limit int, scheduling Scheduling) *queue {
	return &queue{items: make([]*job, 0, limit), limit: limit, scheduling: scheduling}
}

func (q *queue) depth() int      { return len(q.items) }
func (q *queue) isEmpty() bool   { return len(q.items) == 0 }
func (q *queue) isSaturated() bool { return len(q.items) >= q.limit }

// pushBack appends j and returns the edge set this push produced. Invariant
// Q1 (depth <= limit) is the caller's responsibility: pushBack must not be
// called when isSaturated() already holds.
func (q *queue) pushBack(j *job) []corelane.StateEdge {
	wasEmpty := q.isEmpty()
	q.items = append(q.items, j)
	var edges []corelane.StateEdge
	if wasEmpty {
		edges = append(edges, corelane.EdgeBecameNonEmpty)
	}
	if q.isSaturated() {
		edges = append(edges, corelane.EdgeBecameSaturated)
	}
	return edges
}

// popBatch removes and returns up to n jobs, in the configured scheduling
// order, along with the edge set the removal produced.
func (q *queue) popBatch(n int) ([]*job, []corelane.StateEdge) {
	if n <= 0 || len(q.items) == 0 {
		return nil, nil
	}
	wasSaturated := q.isSaturated()
	if n > len(q.items) {
		n = len(q.items)
	}

	var out []*job
	if q.scheduling == SchedulingLIFO {
		start := len(q.items) - n
		out = append(out, q.items[start:]...)
		reverse(out)
		q.items = q.items[:start]
	} else {
		out = append(out, q.items[:n]...)
		q.items = q.items[n:]
	}

	var edges []corelane.StateEdge
	if wasSaturated && !q.isSaturated() {
		edges = append(edges, corelane.EdgeBecameNotSaturated)
	}
	if q.isEmpty() {
		edges = append(edges, corelane.EdgeBecameEmpty)
	}
	return out, edges
}

func reverse(js []*job) {
	for i, j := 0, len(js)-1; i < j; i, j = i+1, j-1 {
		js[i], js[j] = js[j], js[i]
	}
}
