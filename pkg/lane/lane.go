// Package lane is the public Lane Surface (spec.md §4.5): a single
// blocking-call primitive in front of one of four runtime variants —
// Threads, Abandoning, Sharded, or Inline. Callers submit a closure,
// block until it either runs to a result or the lane gives up on it, and
// never see which runtime variant they are talking to beyond its
// advertised Capabilities.
package lane

import (
	"context"

	"github.com/ChuLiYu/lanecore/internal/abandoning"
	"github.com/ChuLiYu/lanecore/internal/corelane"
	"github.com/ChuLiYu/lanecore/internal/threads"
)

// Public re-exports of the shared vocabulary (spec.md §3, §6). These are
// aliases, not new types: a *Lifecycle or Capabilities value produced by
// an internal runtime is directly usable by callers of this package.
type (
	Capabilities = corelane.Capabilities
	ExecutionSemantics = corelane.ExecutionSemantics
	Lifecycle          = corelane.Lifecycle
	LifecycleKind       = corelane.LifecycleKind
	LaneError          = corelane.LaneError
	LaneLeafKind        = corelane.LaneLeafKind
	Clock              = corelane.Clock
	Deadline           = corelane.Deadline
	Metrics            = corelane.Metrics
	Result[T, E any]   = corelane.Result[T, E]
	Scheduling         = corelane.Scheduling
	Strategy           = corelane.Strategy
)

const (
	SemanticsGuaranteed                 = corelane.SemanticsGuaranteed
	SemanticsBestEffort                 = corelane.SemanticsBestEffort
	SemanticsAbandonOnExecutionTimeout  = corelane.SemanticsAbandonOnExecutionTimeout

	SchedulingFIFO = corelane.SchedulingFIFO
	SchedulingLIFO = corelane.SchedulingLIFO

	StrategyWait     = corelane.StrategyWait
	StrategyFailFast = corelane.StrategyFailFast
)

var (
	NoDeadline = corelane.NoDeadline
	AtDeadline = corelane.At
	AfterDeadline = corelane.After

	Cancelled = corelane.Cancelled
	Shutdown  = corelane.Shutdown
	Timeout   = corelane.Timeout
	Failure   = corelane.Failure

	IsCancelled = corelane.IsCancelled
	IsShutdown  = corelane.IsShutdown
	IsTimeout   = corelane.IsTimeout

	ErrQueueFull                  = corelane.ErrQueueFull
	ErrOverloaded                 = corelane.ErrOverloaded
	ErrInternalInvariantViolation = corelane.ErrInternalInvariantViolation
)

// runtime is the narrow interface every concrete Lane variant satisfies.
// It is intentionally smaller than any single runtime's exported surface —
// Lane never leaks which variant backs it.
type runtime interface {
	Run(ctx context.Context, deadline corelane.Deadline, op func() *corelane.Box) (*corelane.Box, error)
	Shutdown()
	Capabilities() corelane.Capabilities
	Metrics() corelane.Metrics
}

// Lane is the Lane Surface itself (spec.md §4.5): one blocking entry
// point, backed by whichever runtime variant its factory function chose.
type Lane struct {
	rt runtime
}

// Capabilities reports this lane's truthful guarantees (spec.md §4.2).
func (l Lane) Capabilities() corelane.Capabilities { return l.rt.Capabilities() }

// Metrics returns a point-in-time snapshot (spec.md §6).
func (l Lane) Metrics() corelane.Metrics { return l.rt.Metrics() }

// Shutdown stops accepting new work and waits for every already-accepted
// job the lane can still join to finish. Idempotent.
func (l Lane) Shutdown() { l.rt.Shutdown() }

// RunResult is the fully generic core primitive (spec.md §4.5): op
// returns a Result[T, E] carrying an arbitrary operation-error type E,
// which this call never requires to implement Go's error interface. The
// returned error is always a *Lifecycle (or nil); a non-nil Result.Err is
// only ever present inside the returned Result itself.
func RunResult[T, E any](ctx context.Context, l Lane, deadline Deadline, op func() Result[T, E]) (Result[T, E], error) {
	box, err := l.rt.Run(ctx, deadline, func() *corelane.Box {
		return corelane.MakeResult(op())
	})
	if err != nil {
		var zero Result[T, E]
		return zero, err
	}
	return corelane.TakeResult[T, E](box), nil
}

// Run is the idiomatic-Go analogue of the source's typed-throwing
// primitive: op returns a plain (T, error) pair, and this call quarantines
// the conversion point between op's own error and the lane's Lifecycle
// errors into a single Result[T, error] box.
func Run[T any](ctx context.Context, l Lane, deadline Deadline, op func() (T, error)) (T, error) {
	r, err := RunResult[T, error](ctx, l, deadline, func() Result[T, error] {
		v, opErr := op()
		if opErr != nil {
			return corelane.Failed[T, error](opErr)
		}
		return corelane.Ok[T, error](v)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if r.IsErr {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// RunValue is the non-throwing primitive: op cannot itself fail, so the
// only possible error is a *Lifecycle.
func RunValue[T any](ctx context.Context, l Lane, deadline Deadline, op func() T) (T, error) {
	box, err := l.rt.Run(ctx, deadline, func() *corelane.Box {
		return corelane.MakeValue(op())
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return corelane.TakeValue[T](box), nil
}

// Threads constructs a Lane backed by the Threads Runtime (spec.md §4.6):
// the default, guaranteed-run-to-completion variant.
func Threads(opts threads.Options) Lane {
	return Lane{rt: threads.New(opts)}
}

// Abandoning constructs a Lane backed by the Abandoning Runtime (spec.md
// §4.7): fault-tolerant against runaway blocking calls, at the cost of
// weaker semantics once a job's execution timeout is exceeded.
func Abandoning(opts abandoning.Options) Lane {
	return Lane{rt: abandoning.New(opts)}
}
