package lane

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChuLiYu/lanecore/internal/abandoning"
	"github.com/ChuLiYu/lanecore/internal/threads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValueOnThreadsLane(t *testing.T) {
	l := Threads(threads.Options{Workers: 2})
	defer l.Shutdown()

	v, err := RunValue(context.Background(), l, NoDeadline, func() int { return 42 })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

var errBoom = errors.New("boom")

func TestRunPropagatesOperationError(t *testing.T) {
	l := Threads(threads.Options{Workers: 1})
	defer l.Shutdown()

	_, err := Run(context.Background(), l, NoDeadline, func() (int, error) {
		return 0, errBoom
	})
	require.Error(t, err)
	assert.Same(t, errBoom, err)
}

func TestRunResultOnThreadsLane(t *testing.T) {
	l := Threads(threads.Options{Workers: 1})
	defer l.Shutdown()

	r, err := RunResult(context.Background(), l, NoDeadline, func() Result[string, int] {
		return Result[string, int]{Value: "ok"}
	})
	require.NoError(t, err)
	assert.False(t, r.IsErr)
	assert.Equal(t, "ok", r.Value)
}

func TestInlineLaneRunsOnCaller(t *testing.T) {
	l := Inline()
	caps := l.Capabilities()
	assert.False(t, caps.ExecutesOnDedicatedThreads)
	assert.Equal(t, SemanticsGuaranteed, caps.Semantics)

	v, err := RunValue(context.Background(), l, NoDeadline, func() int { return 9 })
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestInlineLaneHonoursCancellation(t *testing.T) {
	l := Inline()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunValue(ctx, l, NoDeadline, func() int { return 1 })
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
}

func TestShardedLaneReportsWeakestCapabilities(t *testing.T) {
	l := Sharded(2, func(i int) Lane {
		if i == 0 {
			return Threads(threads.Options{Workers: 1})
		}
		return Abandoning(abandoning.Options{WorkersInitial: 1, WorkersMax: 1, ExecutionTimeout: time.Second})
	})
	defer l.Shutdown()

	caps := l.Capabilities()
	assert.Equal(t, SemanticsAbandonOnExecutionTimeout, caps.Semantics)
}

func TestShardedLaneDispatchesAndAggregatesMetrics(t *testing.T) {
	l := Sharded(3, func(i int) Lane {
		return Threads(threads.Options{Workers: 1})
	})
	defer l.Shutdown()

	for i := 0; i < 9; i++ {
		_, err := RunValue(context.Background(), l, NoDeadline, func() int { return i })
		require.NoError(t, err)
	}

	snap := l.Metrics()
	assert.EqualValues(t, 9, snap.EnqueuedTotal)
	assert.EqualValues(t, 9, snap.CompletedTotal)
}

func TestAbandoningLaneThroughFacade(t *testing.T) {
	l := Abandoning(abandoning.Options{WorkersInitial: 1, WorkersMax: 1, ExecutionTimeout: time.Second})
	defer l.Shutdown()

	v, err := RunValue(context.Background(), l, NoDeadline, func() int { return 5 })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, SemanticsAbandonOnExecutionTimeout, l.Capabilities().Semantics)
}
