package threads

import (
	"context"
	"sync"
	"testing"
	"time"

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

func TestRunReturnsBoxedValue(t *testing.T) {
	r := New(Options{Workers: 2})
	defer r.Shutdown()

	box, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
		return corelane.MakeValue("hello")
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", corelane.TakeValue[string](box))
}

// TestBurstParallelism covers seed scenario 1: a burst of N jobs submitted
// onto N parked workers must run across all of them concurrently, not
// serialize on one. Each job blocks on a shared N-arrival barrier, so the
// test can only pass if every job reaches it at once — proof that the wake
// signal pulled every sleeper off the queue rather than just the first one,
// letting one worker drain the whole burst itself.
func TestBurstParallelism(t *testing.T) {
	const n = 4
	r := New(Options{Workers: n, LaneQueueLimit: n})
	defer r.Shutdown()

	arrived := make(chan int, n)
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			box, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
				arrived <- id
				<-release
				return corelane.MakeValue(id)
			})
			require.NoError(t, err)
			assert.Equal(t, id, corelane.TakeValue[int](box))
		}(i)
	}

	seen := make(map[int]bool)
	timeout := time.After(time.Second)
	for len(seen) < n {
		select {
		case id := <-arrived:
			seen[id] = true
		case <-timeout:
			t.Fatalf("only %d/%d jobs reached the barrier concurrently; a worker is serializing the burst", len(seen), n)
		}
	}
	close(release)
	wg.Wait()
}

// TestCancelVersusCompleteRace covers seed scenario 2: cancelling a
// context right as the job finishes must resolve to exactly one outcome,
// never both and never neither.
func TestCancelVersusCompleteRace(t *testing.T) {
	r := New(Options{Workers: 1})
	defer r.Shutdown()

	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	resultCh := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx, corelane.NoDeadline, func() *corelane.Box {
			<-release
			return corelane.MakeValue(1)
		})
		resultCh <- err
	}()

	// Give the worker a chance to pick the job up before racing cancel
	// against completion.
	waitFor(t, time.Second, func() bool { return r.Metrics().StartedTotal >= 1 })
	close(release)
	cancel()

	err := <-resultCh
	if err != nil {
		assert.True(t, corelane.IsCancelled(err))
	}
}

// TestShutdownResolvesAcceptanceWaiters covers seed scenario 3: a caller
// parked as an acceptance waiter when Shutdown begins must be resumed
// with shutdownInProgress, not left hanging.
func TestShutdownResolvesAcceptanceWaiters(t *testing.T) {
	r := New(Options{Workers: 1, LaneQueueLimit: 1, Strategy: StrategyWait})

	block := make(chan struct{})
	// Occupy the single worker and fill the one-slot queue. Run returns only
	// once its job has run, so both are submitted from their own goroutines.
	go func() {
		_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			<-block
			return corelane.MakeValue(0)
		})
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().StartedTotal >= 1 })
	go func() {
		_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			return corelane.MakeValue(0)
		})
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().QueueDepth >= 1 })

	waiterErrCh := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			return corelane.MakeValue(0)
		})
		waiterErrCh <- err
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().AcceptanceWaitersDepth >= 1 })

	// Shutdown resolves acceptance waiters before it waits for workers, so
	// it is started while the worker is still held; releasing the worker
	// first would let it promote the waiter instead.
	shutdownDone := make(chan struct{})
	go func() {
		r.Shutdown()
		close(shutdownDone)
	}()

	select {
	case err := <-waiterErrCh:
		require.Error(t, err)
		assert.True(t, corelane.IsShutdown(err))
	case <-time.After(time.Second):
		t.Fatal("acceptance waiter was never resumed by shutdown")
	}

	close(block)
	<-shutdownDone
}

// TestFIFOScheduling covers seed scenario 4: under FIFO, jobs start in
// submission order when only one worker is draining them.
func TestFIFOScheduling(t *testing.T) {
	r := New(Options{Workers: 1, LaneQueueLimit: 10, Scheduling: SchedulingFIFO})
	defer r.Shutdown()

	block := make(chan struct{})
	go func() {
		_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			<-block
			return corelane.MakeValue(0)
		})
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().StartedTotal >= 1 })

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return corelane.MakeValue(n)
			})
		}(i)
		waitFor(t, time.Second, func() bool { return r.Metrics().QueueDepth >= int64(i+1) })
	}
	close(block)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

// TestLIFOScheduling covers seed scenario 5: under LIFO, the most recently
// queued job starts next once a worker frees up.
func TestLIFOScheduling(t *testing.T) {
	r := New(Options{Workers: 1, LaneQueueLimit: 10, Scheduling: SchedulingLIFO})
	defer r.Shutdown()

	block := make(chan struct{})
	go func() {
		_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			<-block
			return corelane.MakeValue(0)
		})
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().StartedTotal >= 1 })

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return corelane.MakeValue(n)
			})
		}(i)
		waitFor(t, time.Second, func() bool { return r.Metrics().QueueDepth >= int64(i+1) })
	}
	close(block)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{4, 3, 2, 1, 0}, order)
}

func TestFailFastStrategyOnSaturatedQueue(t *testing.T) {
	r := New(Options{Workers: 1, LaneQueueLimit: 1, Strategy: StrategyFailFast})
	defer r.Shutdown()

	block := make(chan struct{})
	var unblock sync.Once
	defer unblock.Do(func() { close(block) })
	go func() {
		_, _ = r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			<-block
			return corelane.MakeValue(0)
		})
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().StartedTotal >= 1 })

	// Fill the one queue slot. Run returns only once its job has run, so
	// this submission happens on its own goroutine.
	fillErr := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
			return corelane.MakeValue(0)
		})
		fillErr <- err
	}()
	waitFor(t, time.Second, func() bool { return r.Metrics().QueueDepth >= 1 })

	_, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
		return corelane.MakeValue(0)
	})
	require.Error(t, err)
	var lc *corelane.Lifecycle
	require.ErrorAs(t, err, &lc)
	assert.Equal(t, corelane.LifecycleFailure, lc.Kind)
	assert.ErrorIs(t, lc, corelane.ErrQueueFull)

	unblock.Do(func() { close(block) })
	require.NoError(t, <-fillErr) // the queued job runs once the worker is released
}

func TestZeroWorkersUsesDefaultWorkerCount(t *testing.T) {
	r := New(Options{Workers: 0, LaneQueueLimit: 4})
	defer r.Shutdown()

	box, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
		return corelane.MakeValue(1)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, corelane.TakeValue[int](box))
}

func TestAlreadyCancelledContextNeverAllocates(t *testing.T) {
	r := New(Options{Workers: 1})
	defer r.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, err := r.Run(ctx, corelane.NoDeadline, func() *corelane.Box {
		ran = true
		return corelane.MakeValue(0)
	})
	require.Error(t, err)
	assert.True(t, corelane.IsCancelled(err))
	assert.False(t, ran)
}

func TestShutdownIsIdempotent(t *testing.T) {
	r := New(Options{Workers: 2})
	r.Shutdown()
	assert.NotPanics(t, func() { r.Shutdown() })
}

func TestRunAfterShutdownFails(t *testing.T) {
	r := New(Options{Workers: 1})
	r.Shutdown()

	_, err := r.Run(context.Background(), corelane.NoDeadline, func() *corelane.Box {
		return corelane.MakeValue(0)
	})
	require.Error(t, err)
	assert.True(t, corelane.IsShutdown(err))
}

func TestCapabilitiesAreGuaranteedOnDedicatedThreads(t *testing.T) {
	r := New(Options{Workers: 1})
	defer r.Shutdown()

	caps := r.Capabilities()
	assert.True(t, caps.ExecutesOnDedicatedThreads)
	assert.Equal(t, corelane.SemanticsGuaranteed, caps.Semantics)
}
