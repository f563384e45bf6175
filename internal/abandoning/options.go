package abandoning

import (
	"time"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// Options configures an Abandoning Runtime (spec.md §4.7, §6). It shares
// the same backpressure/scheduling vocabulary as the Threads Runtime, plus
// the worker-pool sizing and execution-timeout knobs that make this
// runtime fault-tolerant against runaway jobs.
type Options struct {
	WorkersInitial int
	WorkersMax     int

	// ExecutionTimeout bounds how long a job may run before its watchdog
	// abandons it: the job resumes its caller with a timeout lifecycle and
	// the worker thread that was running it is leaked for the remainder of
	// the process (spec.md §4.7).
	ExecutionTimeout time.Duration

	LaneQueueLimit             int
	LaneAcceptanceWaitersLimit int
	Strategy                   corelane.Strategy
	Scheduling                 corelane.Scheduling
	BatchSize                  int
	OnStateTransition          corelane.TransitionFunc
	Clock                      corelane.Clock
}

// WithDefaults fills zero-valued fields with spec.md §6's documented
// defaults.
func (o Options) WithDefaults() Options {
	if o.WorkersInitial <= 0 {
		o.WorkersInitial = 4
	}
	if o.WorkersMax <= 0 {
		o.WorkersMax = 32
	}
	if o.WorkersMax < o.WorkersInitial {
		o.WorkersMax = o.WorkersInitial
	}
	if o.ExecutionTimeout <= 0 {
		o.ExecutionTimeout = 30 * time.Second
	}
	if o.LaneQueueLimit <= 0 {
		o.LaneQueueLimit = 256
	}
	if o.LaneAcceptanceWaitersLimit <= 0 {
		o.LaneAcceptanceWaitersLimit = 4 * o.LaneQueueLimit
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	if o.Clock == nil {
		o.Clock = corelane.Real()
	}
	return o
}
