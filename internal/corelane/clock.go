package corelane

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the monotonic, sleep-aware time source acceptance waits are
// measured against (spec.md §4's Deadline/Clock component). It is never
// used to bound execution time — only acceptance time, except inside the
// Abandoning Runtime's watchdog, which times out execution deliberately.
//
// Tests substitute clock.NewMock() so a wait-timeout scenario advances
// virtual time instead of sleeping wall-clock time.
type Clock = clock.Clock

// Real is the default, wall-clock-backed Clock.
func Real() Clock { return clock.New() }

// Deadline is an optional point in time by which an acceptance wait must
// resolve. A zero Deadline means "no deadline" (wait indefinitely, subject
// only to cancellation/shutdown/overflow).
type Deadline struct {
	at time.Time
	ok bool
}

// NoDeadline is the zero Deadline: no expiry.
var NoDeadline = Deadline{}

// At builds a Deadline for a specific instant.
func At(t time.Time) Deadline { return Deadline{at: t, ok: true} }

// After builds a Deadline d from now, as measured by clk.
func After(clk Clock, d time.Duration) Deadline { return Deadline{at: clk.Now().Add(d), ok: true} }

// IsSet reports whether the deadline is non-zero.
func (d Deadline) IsSet() bool { return d.ok }

// Remaining returns how long until d, as measured by clk. Negative or zero
// means already expired. The second return is false when no deadline was
// set, in which case the duration is meaningless.
func (d Deadline) Remaining(clk Clock) (time.Duration, bool) {
	if !d.ok {
		return 0, false
	}
	return d.at.Sub(clk.Now()), true
}

// Expired reports whether d has already passed, as measured by clk.
func (d Deadline) Expired(clk Clock) bool {
	rem, ok := d.Remaining(clk)
	return ok && rem <= 0
}

// Time returns the underlying instant and whether a deadline was set.
func (d Deadline) Time() (time.Time, bool) { return d.at, d.ok }
