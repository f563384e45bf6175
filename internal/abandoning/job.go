package abandoning

import (
	"sync/atomic"
	"time"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// state is the same 6-valued job lifecycle tag as the Threads Runtime
// (spec.md §3), reproduced here rather than shared because the Abandoning
// Runtime's CAS races have a third party: the watchdog.
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

// job is the Job Context, with one addition over the Threads Runtime: a
// worker that loses the terminal CAS to a watchdog timeout must not return
// to its pool — it is considered leaked for the life of the process
// (spec.md §4.7). abandoned records that outcome so the worker loop knows
// to stop after op() finally returns.
type job struct {
	ticket uint64
	op     func() *corelane.Box

	st state

	done chan struct{}

	result    *corelane.Box
	lifecycle *corelane.Lifecycle

	enqueuedAt time.Time
	startedAt  time.Time
	endedAt    time.Time

	abandoned int32 // atomic bool: set by the watchdog if it wins the terminal CAS
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

func (j *job) finish(result *corelane.Box, lc *corelane.Lifecycle) {
	j.result = result
	j.lifecycle = lc
	close(j.done)
}

func (j *job) wait() (*corelane.Box, *corelane.Lifecycle) {
	<-j.done
	return j.result, j.lifecycle
}

func (j *job) markAbandoned() { atomic.StoreInt32(&j.abandoned, 1) }
func (j *job) wasAbandoned() bool { return atomic.LoadInt32(&j.abandoned) == 1 }
