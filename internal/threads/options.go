package threads

import (
	"runtime"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// Strategy is the Backpressure Policy's choice of what happens when the
// job queue is full (spec.md §4.4).
type Strategy int

const (
	StrategyWait Strategy = iota
	StrategyFailFast
)

// Options configures a Threads Runtime (spec.md §6).
type Options struct {
	Workers                    int
	LaneQueueLimit             int
	LaneAcceptanceWaitersLimit int
	Strategy                   Strategy
	Scheduling                 Scheduling
	BatchSize                  int
	OnStateTransition          corelane.TransitionFunc
	Clock                      corelane.Clock
}

// WithDefaults fills zero-valued fields with spec.md §6's documented
// defaults, clamping worker count to at least 1 (zero workers is
// impossible per spec.md §8's boundary behaviour).
func (o Options) WithDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Workers < 1 {
		o.Workers = 1
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
