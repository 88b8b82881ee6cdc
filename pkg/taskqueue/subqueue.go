package taskqueue

import "time"

// Subqueue is a thin handle bound to one queue name, forwarding
// submission and introspection to the parent pool. It mirrors the
// original SubqueueWrapperThreadPool: a subqueue cannot itself be
// started, stopped, or terminated, since it shares the parent pool's
// workers and lifecycle.
type Subqueue struct {
	pool  *Pool
	queue QueueName
}

func (s *Subqueue) ApplyAsync(task Task) error {
	return s.pool.ApplyAsync(task, s.queue)
}

func (s *Subqueue) Apply(fn func() (interface{}, error), timeout time.Duration) (interface{}, error) {
	return s.pool.Apply(fn, s.queue, timeout)
}

func (s *Subqueue) SetQueuePriority(weight int) { s.pool.SetQueuePriority(s.queue, weight) }
func (s *Subqueue) QueuePriority() int          { return s.pool.QueuePriority(s.queue) }
func (s *Subqueue) QueueLen() int               { return s.pool.QueueLen(s.queue) }
func (s *Subqueue) QSize() int                  { return s.pool.QSize(s.queue) }

// Start forwards to the parent pool: a subqueue has no workers of its
// own.
func (s *Subqueue) Start() error { return s.pool.Start() }

// Close, Stop, and Terminate are no-ops: a subqueue cannot shut down
// the pool it shares with every other queue.
func (s *Subqueue) Close()     {}
func (s *Subqueue) Stop()      {}
func (s *Subqueue) Terminate() {}
