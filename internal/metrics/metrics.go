// Package metrics is the Prometheus-backed Metrics & State Transitions
// component (spec.md §4's "Metrics & State Transitions", ~4% of budget):
// counters, latency aggregates, and a plain-struct snapshot every runtime
// exposes without requiring a live scrape.
//
// Each Collector owns its own prometheus.Registry unless the caller passes
// one in: a process running several Lanes (e.g. a Sharded Lane, or a
// Threads lane next to an Abandoning lane) must not collide on metric
// names, and re-registering the same Desc against prometheus's default
// registerer panics — a pitfall the teacher's single-collector-per-process
// design never had to confront.
package metrics

import (
	"sync"
	"time"

	"github.com/ChuLiYu/lanecore/internal/corelane"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector collects the counters, gauges and latency histograms named in
// spec.md §3 for a single runtime instance.
type Collector struct {
	jobsEnqueued       prometheus.Counter
	jobsStarted        prometheus.Counter
	jobsCompleted      prometheus.Counter
	jobsFailFast       prometheus.Counter
	jobsOverloaded     prometheus.Counter
	jobsCancelled      prometheus.Counter
	jobsTimedOut       prometheus.Counter
	acceptancePromoted prometheus.Counter

	queueDepth             prometheus.Gauge
	acceptanceWaitersDepth prometheus.Gauge
	executingCount         prometheus.Gauge
	workersSpawned         prometheus.Gauge
	workersActive          prometheus.Gauge
	workersAbandoned       prometheus.Gauge

	enqueueToStart prometheus.Histogram
	execution      prometheus.Histogram
	acceptanceWait prometheus.Histogram

	mu                sync.Mutex
	aggEnqueueToStart corelane.LatencyAggregate
	aggExecution      corelane.LatencyAggregate
	aggAcceptanceWait corelane.LatencyAggregate
}

// NewCollector builds a Collector registered under subsystem (e.g.
// "threads" or "abandoning") against reg. A nil reg gets a private
// prometheus.Registry, so independent Lane instances never collide.
func NewCollector(reg prometheus.Registerer, subsystem string) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		jobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "enqueued_total",
			Help: "Total number of jobs accepted onto the queue.",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "started_total",
			Help: "Total number of jobs that began execution on a worker.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "completed_total",
			Help: "Total number of jobs that completed execution.",
		}),
		jobsFailFast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "fail_fast_total",
			Help: "Total number of submissions rejected immediately because the queue was full.",
		}),
		jobsOverloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "overloaded_total",
			Help: "Total number of submissions rejected because the acceptance-waiter queue was also full.",
		}),
		jobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "cancelled_total",
			Help: "Total number of jobs resolved by cancellation.",
		}),
		jobsTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "timed_out_total",
			Help: "Total number of jobs abandoned by a watchdog after exceeding the execution timeout.",
		}),
		acceptancePromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "acceptance_promoted_total",
			Help: "Total number of acceptance waiters promoted into the queue.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "queue_depth",
			Help: "Current number of jobs sitting in the queue.",
		}),
		acceptanceWaitersDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "acceptance_waiters_depth",
			Help: "Current number of callers suspended as acceptance waiters.",
		}),
		executingCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "executing_count",
			Help: "Current number of jobs running on a worker.",
		}),
		workersSpawned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "workers_spawned",
			Help: "Total number of worker threads ever spawned, including respawns after abandonment.",
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "workers_active",
			Help: "Current number of worker threads able to pick up jobs.",
		}),
		workersAbandoned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "workers_abandoned",
			Help: "Current number of worker threads leaked to a runaway job past its execution timeout.",
		}),
		enqueueToStart: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "enqueue_to_start_seconds",
			Help:    "Latency from enqueue to a worker starting the job.",
			Buckets: prometheus.DefBuckets,
		}),
		execution: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "execution_seconds",
			Help:    "Job execution latency.",
			Buckets: prometheus.DefBuckets,
		}),
		acceptanceWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lane", Subsystem: subsystem, Name: "acceptance_wait_seconds",
			Help:    "Latency an acceptance waiter spent queued before promotion.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.jobsEnqueued, c.jobsStarted, c.jobsCompleted, c.jobsFailFast,
		c.jobsOverloaded, c.jobsCancelled, c.jobsTimedOut, c.acceptancePromoted,
		c.queueDepth, c.acceptanceWaitersDepth, c.executingCount,
		c.workersSpawned, c.workersActive, c.workersAbandoned,
		c.enqueueToStart, c.execution, c.acceptanceWait,
	)
	return c
}

func (c *Collector) RecordEnqueue()    { c.jobsEnqueued.Inc() }
func (c *Collector) RecordFailFast()   { c.jobsFailFast.Inc() }
func (c *Collector) RecordOverloaded() { c.jobsOverloaded.Inc() }
func (c *Collector) RecordCancelled()  { c.jobsCancelled.Inc() }
func (c *Collector) RecordTimedOut()   { c.jobsTimedOut.Inc() }

// RecordStart records a job transitioning pending -> running, with the
// enqueue-to-start latency it waited.
func (c *Collector) RecordStart(d time.Duration) {
	c.jobsStarted.Inc()
	c.enqueueToStart.Observe(d.Seconds())
	c.mu.Lock()
	c.aggEnqueueToStart.Observe(d.Nanoseconds())
	c.mu.Unlock()
}

// RecordCompleted records a job's execution latency once it finishes.
func (c *Collector) RecordCompleted(d time.Duration) {
	c.jobsCompleted.Inc()
	c.execution.Observe(d.Seconds())
	c.mu.Lock()
	c.aggExecution.Observe(d.Nanoseconds())
	c.mu.Unlock()
}

// RecordAcceptancePromoted records a waiter's promotion and how long it
// waited.
func (c *Collector) RecordAcceptancePromoted(d time.Duration) {
	c.acceptancePromoted.Inc()
	c.acceptanceWait.Observe(d.Seconds())
	c.mu.Lock()
	c.aggAcceptanceWait.Observe(d.Nanoseconds())
	c.mu.Unlock()
}

func (c *Collector) SetQueueDepth(n int)             { c.queueDepth.Set(float64(n)) }
func (c *Collector) SetAcceptanceWaitersDepth(n int) { c.acceptanceWaitersDepth.Set(float64(n)) }
func (c *Collector) SetExecutingCount(n int)         { c.executingCount.Set(float64(n)) }
func (c *Collector) SetWorkersSpawned(n int)         { c.workersSpawned.Set(float64(n)) }
func (c *Collector) SetWorkersActive(n int)          { c.workersActive.Set(float64(n)) }
func (c *Collector) SetWorkersAbandoned(n int)       { c.workersAbandoned.Set(float64(n)) }

// Snapshot returns the current counters/gauges/latency aggregates as a
// plain struct (spec.md §6: "Polling is O(1) under the lane lock" — here,
// the lock is Collector.mu, held for the whole snapshot; it guards only the
// three latency aggregates, as the Prometheus counters/gauges are already
// lock-free).
func (c *Collector) Snapshot() corelane.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return corelane.Metrics{
		EnqueuedTotal:           int64(counterValue(c.jobsEnqueued)),
		StartedTotal:            int64(counterValue(c.jobsStarted)),
		CompletedTotal:          int64(counterValue(c.jobsCompleted)),
		FailFastTotal:           int64(counterValue(c.jobsFailFast)),
		OverloadedTotal:         int64(counterValue(c.jobsOverloaded)),
		CancelledTotal:          int64(counterValue(c.jobsCancelled)),
		TimedOutTotal:           int64(counterValue(c.jobsTimedOut)),
		AcceptancePromotedTotal: int64(counterValue(c.acceptancePromoted)),
		QueueDepth:              int64(gaugeValue(c.queueDepth)),
		AcceptanceWaitersDepth:  int64(gaugeValue(c.acceptanceWaitersDepth)),
		ExecutingCount:          int64(gaugeValue(c.executingCount)),
		WorkersSpawned:          int64(gaugeValue(c.workersSpawned)),
		WorkersActive:           int64(gaugeValue(c.workersActive)),
		WorkersAbandoned:        int64(gaugeValue(c.workersAbandoned)),
		EnqueueToStart:          c.aggEnqueueToStart,
		Execution:               c.aggExecution,
		AcceptanceWait:          c.aggAcceptanceWait,
	}
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
