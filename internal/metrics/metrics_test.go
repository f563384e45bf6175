package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry(), "threads")
	require.NotNil(t, c)
	snap := c.Snapshot()
	assert.Zero(t, snap.EnqueuedTotal)
	assert.Zero(t, snap.QueueDepth)
}

func TestCollectorIndependentRegistries(t *testing.T) {
	// Two collectors for two independent lanes must never collide, even
	// with identical subsystem names, because each gets its own
	// registry by default.
	assert.NotPanics(t, func() {
		NewCollector(nil, "threads")
		NewCollector(nil, "threads")
	})
}

func TestRecordEnqueueAndStart(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry(), "threads")

	c.RecordEnqueue()
	c.RecordEnqueue()
	c.RecordStart(5 * time.Millisecond)

	snap := c.Snapshot()
	assert.EqualValues(t, 2, snap.EnqueuedTotal)
	assert.EqualValues(t, 1, snap.StartedTotal)
	assert.EqualValues(t, 1, snap.EnqueueToStart.Count)
	assert.EqualValues(t, 5*time.Millisecond, time.Duration(snap.EnqueueToStart.SumNs))
}

func TestRecordCompletedLatencyBounds(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry(), "threads")

	c.RecordCompleted(10 * time.Millisecond)
	c.RecordCompleted(2 * time.Millisecond)
	c.RecordCompleted(50 * time.Millisecond)

	snap := c.Snapshot()
	assert.EqualValues(t, 3, snap.CompletedTotal)
	assert.EqualValues(t, 3, snap.Execution.Count)
	assert.EqualValues(t, 2*time.Millisecond, time.Duration(snap.Execution.MinNs))
	assert.EqualValues(t, 50*time.Millisecond, time.Duration(snap.Execution.MaxNs))
}

func TestGaugesReflectLatestSet(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry(), "threads")

	c.SetQueueDepth(3)
	c.SetAcceptanceWaitersDepth(7)
	c.SetExecutingCount(2)

	snap := c.Snapshot()
	assert.EqualValues(t, 3, snap.QueueDepth)
	assert.EqualValues(t, 7, snap.AcceptanceWaitersDepth)
	assert.EqualValues(t, 2, snap.ExecutingCount)
}

func TestWorkerLifecycleGaugesAndTimeouts(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry(), "abandoning")

	c.RecordTimedOut()
	c.SetWorkersSpawned(5)
	c.SetWorkersActive(4)
	c.SetWorkersAbandoned(1)

	snap := c.Snapshot()
	assert.EqualValues(t, 1, snap.TimedOutTotal)
	assert.EqualValues(t, 5, snap.WorkersSpawned)
	assert.EqualValues(t, 4, snap.WorkersActive)
	assert.EqualValues(t, 1, snap.WorkersAbandoned)
}

func TestConcurrentMetricUpdates(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry(), "threads")

	done := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		go func() {
			c.RecordEnqueue()
			c.RecordStart(time.Millisecond)
			c.RecordCompleted(time.Millisecond)
			c.SetQueueDepth(5)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 100; i++ {
		<-done
	}

	snap := c.Snapshot()
	assert.EqualValues(t, 100, snap.EnqueuedTotal)
	assert.EqualValues(t, 100, snap.CompletedTotal)
}
