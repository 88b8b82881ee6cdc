// Package taskqueue implements a multi-queue, weight-fair daemon pool.
//
// Tasks are submitted to named queues. A pool-wide weighted
// round-robin scheduler periodically rebuilds a flat work list from
// every queue's backlog (the "swap") and hands it to a fixed set of
// worker goroutines, giving each queue dispatch share proportional to
// its weight while preserving FIFO order within a queue.
package taskqueue

import "errors"

// QueueName identifies a queue. The zero value is the default queue,
// mirroring the original implementation's use of None as a dict key.
type QueueName string

// DefaultQueue is the queue used when callers don't name one.
const DefaultQueue QueueName = ""

// Task is a fully bound unit of work. Argument binding happens at the
// API boundary (see Bind), never inside the core scheduler.
type Task func() error

var (
	// ErrNotStarted reports a pool that has not been started. ApplyAsync
	// reacts to it by starting the pool, so no exported method returns it.
	ErrNotStarted = errors.New("taskqueue: pool not started")

	// ErrClosed is returned by ApplyAsync/Apply once the pool has been
	// closed, stopped, or terminated.
	ErrClosed = errors.New("taskqueue: pool closed")

	// ErrTimeout is returned by Apply when the caller's timeout elapses
	// before the task completes. The task itself is not cancelled and
	// keeps running on its worker.
	ErrTimeout = errors.New("taskqueue: apply timed out")

	// ErrJoinTimeout is returned by Join when the timeout elapses before
	// the pool goes idle.
	ErrJoinTimeout = errors.New("taskqueue: join timed out")
)
