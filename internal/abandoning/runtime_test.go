package abandoning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ChuLiYu/lanecore/internal/corelane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition never became true within %s", timeout)
}

func TestAbandoningRuntimeCompletesFastJobs(t *testing.T) {
	r := New(Options{WorkersInitial: 2, WorkersMax: 2, ExecutionTimeout: time.Second})
	defer r.Shutdown()

	box, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
		return corelane.MakeValue(7)
	})
	require.NoError(t, err)
	assert.Equal(t, 7, corelane.TakeValue[int](box))
}

// TestAbandoningRuntimeTimesOutAndRespawns covers the spec's seed scenario
// 6: a job that never returns is abandoned by its watchdog once
// executionTimeout elapses, the caller is resumed with a timeout, and the
// worker thread it was running on is replaced rather than waited for.
func TestAbandoningRuntimeTimesOutAndRespawns(t *testing.T) {
	mockClock := clock.NewMock()
	r := New(Options{
		WorkersInitial:   1,
		WorkersMax:       2,
		ExecutionTimeout: 10 * time.Millisecond,
		Clock:            mockClock,
	})

	block := make(chan struct{}) // never closed: this op hangs forever.
	var wg sync.WaitGroup
	wg.Add(1)

	var gotErr error
	go func() {
		defer wg.Done()
		_, gotErr = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			<-block
			return corelane.MakeValue(0)
		})
	}()

	// Let the job reach the watchdog-armed running state, then fire the
	// timeout deterministically.
	waitFor(t, time.Second, func() bool {
		snap := r.Metrics()
		return snap.StartedTotal >= 1
	})
	mockClock.Add(10 * time.Millisecond)

	wg.Wait()
	require.Error(t, gotErr)
	assert.True(t, corelane.IsTimeout(gotErr))

	snap := r.Metrics()
	assert.EqualValues(t, 1, snap.WorkersAbandoned)
	assert.EqualValues(t, 2, snap.WorkersSpawned)
	assert.EqualValues(t, 1, snap.WorkersActive)
}

func TestAbandoningRuntimeExhaustionMarksOverloaded(t *testing.T) {
	mockClock := clock.NewMock()
	r := New(Options{
		WorkersInitial:   1,
		WorkersMax:       1, // no respawn budget: one abandonment exhausts the pool.
		ExecutionTimeout: 5 * time.Millisecond,
		Clock:            mockClock,
	})

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			<-block
			return corelane.MakeValue(0)
		})
	}()

	waitFor(t, time.Second, func() bool { return r.Metrics().StartedTotal >= 1 })
	mockClock.Add(5 * time.Millisecond)
	wg.Wait()

	waitFor(t, time.Second, func() bool { return r.Metrics().WorkersAbandoned == 1 })

	_, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
		return corelane.MakeValue(1)
	})
	require.Error(t, err)
	var lc *corelane.Lifecycle
	require.ErrorAs(t, err, &lc)
	assert.Equal(t, corelane.LifecycleFailure, lc.Kind)
}

func TestAbandoningRuntimeShutdownAfterCompletedJobs(t *testing.T) {
	r := New(Options{WorkersInitial: 3, WorkersMax: 3, ExecutionTimeout: time.Second})

	for i := 0; i < 5; i++ {
		_, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			return corelane.MakeValue(1)
		})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not complete")
	}
}
