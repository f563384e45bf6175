package lane

import (
	"context"

	"github.com/ChuLiYu/lanecore/internal/corelane"
)

// inlineRuntime runs every job synchronously on the calling goroutine. It
// exists for tests and tooling that want the Lane Surface's error
// taxonomy without paying for a worker pool (spec.md §9's test-harness
// non-goal calls out that this variant is not meant for production use).
type inlineRuntime struct{}

// Inline constructs a Lane that executes every op on the caller,
// performing exactly one cancellation/deadline check before running it.
// It truthfully declares SemanticsGuaranteed and
// ExecutesOnDedicatedThreads=false — nothing about it ever isolates a
// blocking call from the caller's own goroutine.
func Inline() Lane { return Lane{rt: inlineRuntime{}} }

func (inlineRuntime) Run(ctx context.Context, deadline corelane.Deadline, op func() *corelane.Box) (*corelane.Box, error) {
	select {
	case <-ctx.Done():
		return nil, corelane.Cancelled()
	default:
	}
	if deadline.Expired(corelane.Real()) {
		return nil, corelane.Timeout()
	}
	return op(), nil
}

func (inlineRuntime) Shutdown() {}

func (inlineRuntime) Capabilities() corelane.Capabilities {
	return corelane.Capabilities{ExecutesOnDedicatedThreads: false, Semantics: corelane.SemanticsGuaranteed}
}

func (inlineRuntime) Metrics() corelane.Metrics { return corelane.Metrics{} }
