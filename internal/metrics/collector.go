// Package metrics collects and exposes Prometheus metrics for a
// taskqueue.Pool.
//
// Metric Categories:
//
//  1. Counters, monotonically increasing, labeled by queue:
//     - pool_tasks_enqueued_total
//     - pool_tasks_dispatched_total
//     - pool_tasks_completed_total
//     - pool_tasks_failed_total
//     - pool_worker_panics_total
//
//  2. Histogram:
//     - pool_task_latency_seconds: wall-clock task execution time
//
//  3. Gauges, labeled by queue:
//     - pool_queue_depth: approximate backlog length (QueueLen)
//     - pool_queue_busy_factor: share of the current dispatch
//       snapshot contributed by this queue
//
// HTTP Endpoint:
//
//	Exposed via /metrics, scraped by Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

// Collector implements taskqueue.MetricsSink.
type Collector struct {
	tasksEnqueued   *prometheus.CounterVec
	tasksDispatched *prometheus.CounterVec
	tasksCompleted  *prometheus.CounterVec
	tasksFailed     *prometheus.CounterVec
	workerPanics    *prometheus.CounterVec

	taskLatency prometheus.Histogram

	queueDepth      *prometheus.GaugeVec
	queueBusyFactor *prometheus.GaugeVec
}

var _ taskqueue.MetricsSink = (*Collector)(nil)

// NewCollector creates and registers a new metrics collector.
func NewCollector() *Collector {
	c := &Collector{
		tasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_tasks_enqueued_total",
			Help: "Total number of tasks submitted to the pool",
		}, []string{"queue"}),
		tasksDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_tasks_dispatched_total",
			Help: "Total number of tasks handed to a worker",
		}, []string{"queue"}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_tasks_completed_total",
			Help: "Total number of tasks that completed without error",
		}, []string{"queue"}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_tasks_failed_total",
			Help: "Total number of tasks that returned an error or panicked",
		}, []string{"queue"}),
		workerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_worker_panics_total",
			Help: "Total number of task panics recovered by a worker",
		}, []string{"queue"}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pool_task_latency_seconds",
			Help:    "Task execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pool_queue_depth",
			Help: "Approximate number of pending tasks in a queue",
		}, []string{"queue"}),
		queueBusyFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pool_queue_busy_factor",
			Help: "Queue's share of the most recent dispatch snapshot",
		}, []string{"queue"}),
	}

	prometheus.MustRegister(c.tasksEnqueued)
	prometheus.MustRegister(c.tasksDispatched)
	prometheus.MustRegister(c.tasksCompleted)
	prometheus.MustRegister(c.tasksFailed)
	prometheus.MustRegister(c.workerPanics)
	prometheus.MustRegister(c.taskLatency)
	prometheus.MustRegister(c.queueDepth)
	prometheus.MustRegister(c.queueBusyFactor)

	return c
}

func (c *Collector) TaskEnqueued(queue taskqueue.QueueName) {
	c.tasksEnqueued.WithLabelValues(string(queue)).Inc()
}

func (c *Collector) TaskDispatched(queue taskqueue.QueueName) {
	c.tasksDispatched.WithLabelValues(string(queue)).Inc()
}

func (c *Collector) TaskCompleted(queue taskqueue.QueueName, latency time.Duration) {
	c.tasksCompleted.WithLabelValues(string(queue)).Inc()
	c.taskLatency.Observe(latency.Seconds())
}

func (c *Collector) TaskFailed(queue taskqueue.QueueName) {
	c.tasksFailed.WithLabelValues(string(queue)).Inc()
}

func (c *Collector) WorkerPanicked(queue taskqueue.QueueName) {
	c.workerPanics.WithLabelValues(string(queue)).Inc()
}

func (c *Collector) QueueStats(queue taskqueue.QueueName, depth int, busyFactor float64) {
	c.queueDepth.WithLabelValues(string(queue)).Set(float64(depth))
	c.queueBusyFactor.WithLabelValues(string(queue)).Set(busyFactor)
}

// StartServer starts the Prometheus metrics HTTP server on port.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}
