package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

func TestNewCollector(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := NewCollector()
	assert.NotNil(t, c)
}

func TestRecordMethodsDoNotPanic(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := NewCollector()

	assert.NotPanics(t, func() {
		c.TaskEnqueued("reports")
		c.TaskDispatched("reports")
		c.TaskCompleted("reports", 10*time.Millisecond)
		c.TaskFailed("reports")
		c.WorkerPanicked("reports")
		c.QueueStats("reports", 3, 0.5)
	})
}

func TestCollectorIsolation(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c1 := NewCollector()
	require.NotNil(t, c1)

	assert.Panics(t, func() {
		NewCollector()
	}, "registering a second collector against the same registry should panic")
}

func TestConcurrentMetricUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := NewCollector()

	done := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		go func() {
			c.TaskEnqueued("q")
			c.TaskDispatched("q")
			c.TaskCompleted("q", time.Millisecond)
			c.QueueStats("q", 1, 0.1)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
}

var _ taskqueue.MetricsSink = (*Collector)(nil)
