package corelane

import "errors"

// LaneLeafKind enumerates the lane-infrastructure failures, distinct from
// lifecycle concerns and from an operation's own error type.
type LaneLeafKind int

const (
	// LeafQueueFull: the job queue was saturated under the failFast
	// strategy.
	LeafQueueFull LaneLeafKind = iota
	// LeafOverloaded: the acceptance-waiter queue was also saturated.
	LeafOverloaded
	// LeafInternalInvariantViolation: the module's own CAS discipline
	// was violated. Only reachable by a bug in this package.
	LeafInternalInvariantViolation
)

func (k LaneLeafKind) String() string {
	switch k {
	case LeafQueueFull:
		return "queueFull"
	case LeafOverloaded:
		return "overloaded"
	case LeafInternalInvariantViolation:
		return "internalInvariantViolation"
	default:
		return "unknown"
	}
}

// LaneError is the lane-leaf error E_lane (spec.md §4.3): infrastructure
// failures, never an operation's own error.
type LaneError struct {
	Kind LaneLeafKind
}

func (e *LaneError) Error() string { return "lane: " + e.Kind.String() }

// Sentinel LaneError values, for errors.Is comparisons against
// Lifecycle.Unwrap() results.
var (
	ErrQueueFull                  = &LaneError{Kind: LeafQueueFull}
	ErrOverloaded                 = &LaneError{Kind: LeafOverloaded}
	ErrInternalInvariantViolation = &LaneError{Kind: LeafInternalInvariantViolation}
)

// LifecycleKind enumerates the flat lifecycle cases every Lane.Run can
// return. LifecycleFailure wraps a LaneError; the other cases never nest.
type LifecycleKind int

const (
	LifecycleCancelled LifecycleKind = iota
	LifecycleShutdown
	LifecycleTimeout
	LifecycleFailure
)

func (k LifecycleKind) String() string {
	switch k {
	case LifecycleCancelled:
		return "cancelled"
	case LifecycleShutdown:
		return "shutdownInProgress"
	case LifecycleTimeout:
		return "timeout"
	case LifecycleFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Lifecycle is the outer error shell every Lane.Run throws (returns). It is
// never itself an operation error — E_op always arrives inside the boxed
// Result, never as a Lifecycle.
type Lifecycle struct {
	Kind LifecycleKind
	Leaf *LaneError // only set when Kind == LifecycleFailure
}

func (l *Lifecycle) Error() string {
	if l.Kind == LifecycleFailure && l.Leaf != nil {
		return "lane: " + l.Leaf.Error()
	}
	return "lane: " + l.Kind.String()
}

func (l *Lifecycle) Unwrap() error {
	if l.Kind == LifecycleFailure && l.Leaf != nil {
		return l.Leaf
	}
	return nil
}

// Cancelled, Shutdown, Timeout and Failure build the four flat Lifecycle
// cases.
func Cancelled() *Lifecycle { return &Lifecycle{Kind: LifecycleCancelled} }
func Shutdown() *Lifecycle  { return &Lifecycle{Kind: LifecycleShutdown} }
func Timeout() *Lifecycle   { return &Lifecycle{Kind: LifecycleTimeout} }
func Failure(leaf *LaneError) *Lifecycle {
	return &Lifecycle{Kind: LifecycleFailure, Leaf: leaf}
}

// IsCancelled, IsShutdown and IsTimeout are errors.Is-friendly helpers for
// callers that only care about one lifecycle case.
func IsCancelled(err error) bool { return lifecycleKindIs(err, LifecycleCancelled) }
func IsShutdown(err error) bool  { return lifecycleKindIs(err, LifecycleShutdown) }
func IsTimeout(err error) bool   { return lifecycleKindIs(err, LifecycleTimeout) }

func lifecycleKindIs(err error, kind LifecycleKind) bool {
	var lc *Lifecycle
	if errors.As(err, &lc) {
		return lc.Kind == kind
	}
	return false
}
