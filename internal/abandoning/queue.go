package abandoning

import "github.com/ChuLiYu/lanecore/internal/corelane"

// queue is the bounded sequence of jobs waiting for a worker, identical in
// shape to the Threads Runtime's (spec.md §3). Callers must hold the
// runtime's state lock for every method below.
type queue struct {
	items      []*job
	limit      int
	scheduling corelane.Scheduling
}

func newQueue(limit int, scheduling corelane.Scheduling) *queue {
	return &queue{items: make([]*job, 0, limit), limit: limit, scheduling: scheduling}
}

func (q *queue) depth() int       { return len(q.items) }
func (q *queue) isEmpty() bool    { return len(q.items) == 0 }
func (q *queue) isSaturated() bool { return len(q.items) >= q.limit }

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

func (q *queue) popBatch(n int) ([]*job, []corelane.StateEdge) {
	if n <= 0 || len(q.items) == 0 {
		return nil, nil
	}
	wasSaturated := q.isSaturated()
	if n > len(q.items) {
		n = len(q.items)
	}

	var out []*job
	if q.scheduling == corelane.SchedulingLIFO {
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
