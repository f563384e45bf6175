package corelane

// LatencyAggregate is a count/sum/min/max rollup for one latency series,
// matching spec.md §3's {count, sumNs, minNs, maxNs} shape. It is plain
// data: the Prometheus-backed collector in internal/metrics knows how to
// produce and update one; this package only defines the wire shape so a
// caller can poll without touching Prometheus at all.
type LatencyAggregate struct {
	Count int64
	SumNs int64
	MinNs int64
	MaxNs int64
}

// Observe folds a single sample (in nanoseconds) into the aggregate.
func (a *LatencyAggregate) Observe(ns int64) {
	if a.Count == 0 || ns < a.MinNs {
		a.MinNs = ns
	}
	if ns > a.MaxNs {
		a.MaxNs = ns
	}
	a.SumNs += ns
	a.Count++
}

// Metrics is the O(1)-to-poll snapshot exposed by every runtime (spec.md
// §6). Counters are cumulative; gauges and latency aggregates reflect the
// instant the snapshot was taken.
type Metrics struct {
	EnqueuedTotal            int64
	StartedTotal             int64
	CompletedTotal           int64
	FailFastTotal            int64
	OverloadedTotal          int64
	CancelledTotal           int64
	AcceptancePromotedTotal  int64
	TimedOutTotal            int64

	QueueDepth             int64
	AcceptanceWaitersDepth int64
	ExecutingCount         int64

	// Worker-lifecycle gauges. Only the Abandoning Runtime moves these off
	// zero (spec.md §4.7); the Threads Runtime's worker pool is static.
	WorkersSpawned   int64
	WorkersActive    int64
	WorkersAbandoned int64

	EnqueueToStart LatencyAggregate
	Execution      LatencyAggregate
	AcceptanceWait LatencyAggregate
}

// StateEdge is one of the four queue-depth edge transitions a push/pop can
// produce (spec.md §3, Invariant Q2).
type StateEdge int

const (
	EdgeBecameEmpty StateEdge = iota
	EdgeBecameNonEmpty
	EdgeBecameSaturated
	EdgeBecameNotSaturated
)

func (e StateEdge) String() string {
	switch e {
	case EdgeBecameEmpty:
		return "becameEmpty"
	case EdgeBecameNonEmpty:
		return "becameNonEmpty"
	case EdgeBecameSaturated:
		return "becameSaturated"
	case EdgeBecameNotSaturated:
		return "becameNotSaturated"
	default:
		return "unknown"
	}
}

// TransitionFunc is the optional edge-notification callback a runtime
// invokes on queue-depth transitions, for observability (spec.md §9's
// "onStateTransition").
type TransitionFunc func(edges []StateEdge)
