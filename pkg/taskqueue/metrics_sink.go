package taskqueue

import "time"

// MetricsSink receives callbacks at defined points in task dispatch
// and execution. Metrics are explicitly out of scope for the core
// scheduler's own correctness (SPEC_FULL.md §1); this is the seam a
// concrete implementation (internal/metrics) attaches to.
type MetricsSink interface {
	TaskEnqueued(queue QueueName)
	TaskDispatched(queue QueueName)
	TaskCompleted(queue QueueName, latency time.Duration)
	TaskFailed(queue QueueName)
	WorkerPanicked(queue QueueName)
	QueueStats(queue QueueName, depth int, busyFactor float64)
}

// TraceSink receives the same lifecycle callbacks for durable,
// observability-only event logging (internal/tracelog). It is never
// consulted to restore pool state.
type TraceSink interface {
	Record(event string, queue QueueName, seq uint64)
}

// noopMetrics is installed when the pool is constructed without a
// MetricsSink, so the dispatch/worker code never needs a nil check.
type noopMetrics struct{}

func (noopMetrics) TaskEnqueued(QueueName)                    {}
func (noopMetrics) TaskDispatched(QueueName)                  {}
func (noopMetrics) TaskCompleted(QueueName, time.Duration)    {}
func (noopMetrics) TaskFailed(QueueName)                      {}
func (noopMetrics) WorkerPanicked(QueueName)                  {}
func (noopMetrics) QueueStats(QueueName, int, float64)        {}

type noopTrace struct{}

func (noopTrace) Record(string, QueueName, uint64) {}
