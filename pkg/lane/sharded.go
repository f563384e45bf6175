package lane

import (
	"context"
	"sync/atomic"

	"github.com/ChuLiYu/lanecore/internal/corelane"
	"golang.org/x/sync/errgroup"
)

// shardedRuntime fans submissions out across N independently-constructed
// sub-lanes by atomic round-robin (spec.md §4's "Sharded Lane"). Its
// declared Capabilities are the Meet of every shard's — a sharded lane is
// never stronger than its weakest shard, and callers must not be misled
// into thinking otherwise.
type shardedRuntime struct {
	shards []runtime
	next   uint64
	caps   corelane.Capabilities
}

// Sharded constructs a Lane that dispatches across count independently
// constructed sub-lanes, built by calling factory once per shard. A
// typical factory closes over a shared Options value and ignores its
// index argument; it receives the index so callers can vary e.g. the
// runtime variant or its options per shard if they choose to.
func Sharded(count int, factory func(index int) Lane) Lane {
	if count < 1 {
		count = 1
	}
	shards := make([]runtime, count)
	caps := make([]corelane.Capabilities, count)
	for i := 0; i < count; i++ {
		l := factory(i)
		shards[i] = l.rt
		caps[i] = l.rt.Capabilities()
	}
	return Lane{rt: &shardedRuntime{shards: shards, caps: corelane.Meet(caps...)}}
}

func (s *shardedRuntime) pick() runtime {
	n := atomic.AddUint64(&s.next, 1)
	return s.shards[n%uint64(len(s.shards))]
}

func (s *shardedRuntime) Run(ctx context.Context, deadline corelane.Deadline, op func() *corelane.Box) (*corelane.Box, error) {
	return s.pick().Run(ctx, deadline, op)
}

func (s *shardedRuntime) Capabilities() corelane.Capabilities { return s.caps }

func (s *shardedRuntime) Metrics() corelane.Metrics {
	// Aggregate shard snapshots by summing counters and gauges; latency
	// aggregates fold the same way a single collector would if it had
	// observed every shard's samples itself.
	var out corelane.Metrics
	for _, sh := range s.shards {
		m := sh.Metrics()
		out.EnqueuedTotal += m.EnqueuedTotal
		out.StartedTotal += m.StartedTotal
		out.CompletedTotal += m.CompletedTotal
		out.FailFastTotal += m.FailFastTotal
		out.OverloadedTotal += m.OverloadedTotal
		out.CancelledTotal += m.CancelledTotal
		out.AcceptancePromotedTotal += m.AcceptancePromotedTotal
		out.TimedOutTotal += m.TimedOutTotal

		out.QueueDepth += m.QueueDepth
		out.AcceptanceWaitersDepth += m.AcceptanceWaitersDepth
		out.ExecutingCount += m.ExecutingCount
		out.WorkersSpawned += m.WorkersSpawned
		out.WorkersActive += m.WorkersActive
		out.WorkersAbandoned += m.WorkersAbandoned

		foldLatency(&out.EnqueueToStart, m.EnqueueToStart)
		foldLatency(&out.Execution, m.Execution)
		foldLatency(&out.AcceptanceWait, m.AcceptanceWait)
	}
	return out
}

func foldLatency(into *corelane.LatencyAggregate, from corelane.LatencyAggregate) {
	if from.Count == 0 {
		return
	}
	if into.Count == 0 || from.MinNs < into.MinNs {
		into.MinNs = from.MinNs
	}
	if from.MaxNs > into.MaxNs {
		into.MaxNs = from.MaxNs
	}
	into.SumNs += from.SumNs
	into.Count += from.Count
}

// Shutdown shuts every shard down in parallel, so the total wall-clock
// cost is the slowest shard's, not their sum.
func (s *shardedRuntime) Shutdown() {
	var g errgroup.Group
	for _, sh := range s.shards {
		sh := sh
		g.Go(func() error {
			sh.Shutdown()
			return nil
		})
	}
	_ = g.Wait()
}
