package threads

import (
	"sync/atomic"
	"time"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// state is the 6-valued job lifecycle tag (spec.md §3). All transitions are
// a single atomic CAS; exactly one reaches a terminal value (invariant J1).
type state int32

const (
	statePending state = iota
	stateRunning
	stateCompleted
	stateTimedOut
	stateCancelled
	stateFailed
)

func (s state) terminal() bool {
	return s == stateCompleted || s == stateTimedOut || s == stateCancelled || s == stateFailed
}

// job is the Job Context (spec.md §3): the boxed closure, the atomic
// lifecycle tag, and the completion slot the winning CAS publishes through.
//
// The Threads Runtime places the completion slot directly inside the job —
// a worker writes the result through a back-pointer, eliminating any
// ticket-to-continuation lookup (spec.md §3, "Completion Slot").
type job struct {
	ticket uint64
	op     func() *corelane.Box

	st state // accessed only via atomic CAS/Load

	// done is closed exactly once, by the terminal-CAS winner, after
	// result/lifecycle have been published. It is the continuation: the
	// caller's goroutine blocks on <-done.
	done chan struct{}

	// Published only by the terminal-CAS winner, before done is closed.
	// Safe for the caller to read once done is closed (happens-before
	// via the channel close).
	result    *corelane.Box
	lifecycle *corelane.Lifecycle

	enqueuedAt time.Time
	startedAt  time.Time
	endedAt    time.Time
}

func newJob(ticket uint64, op func() *corelane.Box) *job {
	return &job{
		ticket: ticket,
		op:     op,
		st:     statePending,
		done:   make(chan struct{}),
	}
}

func (j *job) cas(from, to state) bool {
	return atomic.CompareAndSwapInt32((*int32)(&j.st), int32(from), int32(to))
}

func (j *job) load() state {
	return state(atomic.LoadInt32((*int32)(&j.st)))
}

// finish is called by exactly one CAS winner: it publishes the outcome and
// resumes the caller (closes done). Every other path into a terminal state
// must instead destroy whatever box it produced (invariant C1/J1).
func (j *job) finish(result *corelane.Box, lc *corelane.Lifecycle) {
	j.result = result
	j.lifecycle = lc
	close(j.done)
}

// wait blocks until the job reaches a terminal state and returns its
// outcome. It never itself mutates job state — cancellation and timeout
// races are resolved entirely by CAS elsewhere.
func (j *job) wait() (*corelane.Box, *corelane.Lifecycle) {
	<-j.done
	return j.result, j.lifecycle
}
