// Package corelane holds the primitives shared by every Lane implementation:
// the type-erased result box, the capability/semantics lattice, the error
// taxonomy, and the acceptance-wait clock. Nothing in this package knows
// about queues, workers, or threads — those live in internal/threads and
// internal/abandoning, both of which build on top of what's here.
package corelane

// Box is a type-erased, exactly-once heap transfer of a typed value across
// the worker/async boundary. It is produced inside a worker goroutine by
// Make or MakeValue and consumed exactly once by Take/TakeValue (the normal
// path) or Destroy (the abandoned path) — never both.
//
// Two disjoint allocations back a Box: this struct (the header, holding a
// destroy thunk that closes over the concrete T/E) and the payload it
// captures. Callers never see the payload type; it is recovered only at the
// Take* call site, which is the one place in the program that knows T (and
// E, for TakeResult).
type Box struct {
	destroy func()
	take    func() any
}

// MakeValue boxes a bare value v of type T.
func MakeValue[T any](v T) *Box {
	val := v
	return &Box{
		destroy: func() {},
		take:    func() any { return val },
	}
}

// MakeResult boxes a Result[T, E].
func MakeResult[T, E any](r Result[T, E]) *Box {
	res := r
	return &Box{
		destroy: func() {},
		take:    func() any { return res },
	}
}

// TakeValue consumes the box and returns the T it carries. It must only be
// called by code that knows the box was produced by MakeValue[T] with the
// same T; it is the single quarantined cast point for this boundary.
func TakeValue[T any](b *Box) T {
	v, _ := b.take().(T)
	return v
}

// TakeResult consumes the box and returns the Result[T, E] it carries.
func TakeResult[T, E any](b *Box) Result[T, E] {
	v, _ := b.take().(Result[T, E])
	return v
}

// Destroy releases a box without reading its payload. It is called on every
// losing path of a terminal CAS (B2): the box was allocated by a worker
// that raced a watchdog, a cancellation, or a shutdown and lost.
func Destroy(b *Box) {
	if b == nil {
		return
	}
	b.destroy()
}

// Result mirrors a Result<T, E> boxed across the worker boundary: either a
// value or an operation-specific error, never both. E is left fully
// generic — it does not need to implement the error interface, matching
// the "typed throws" style the Lane surface preserves for callers (see
// Run in pkg/lane).
type Result[T, E any] struct {
	Value T
	Err   E
	IsErr bool
}

// Ok constructs a successful Result.
func Ok[T, E any](v T) Result[T, E] {
	return Result[T, E]{Value: v}
}

// Failed constructs a failed Result.
func Failed[T, E any](e E) Result[T, E] {
	return Result[T, E]{Err: e, IsErr: true}
}
