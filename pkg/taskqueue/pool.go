package taskqueue

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var log = slog.Default()

// Config configures a Pool at construction time.
type Config struct {
	// Workers is the number of worker goroutines. Defaults to
	// runtime.NumCPU() if <= 0.
	Workers int

	// MinBatch and MaxBatch clamp the shared slots value computed at
	// each swap round; a queue contributes slots × its weight tasks per
	// round. Defaults: 10 and 1000.
	MinBatch int
	MaxBatch int

	// MaxSlice bounds how far a queue's read cursor (its consumed but
	// not yet freed prefix) can advance before the swap switches from
	// zero-copy-slicing to copy-and-compact. 0 means half of the queue's
	// current backlog length.
	MaxSlice int

	Metrics MetricsSink
	Trace   TraceSink
}

// DefaultConfig returns the configuration defaults listed in
// SPEC_FULL.md §6.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinBatch: 10,
		MaxBatch: 1000,
	}
}

func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MinBatch <= 0 {
		c.MinBatch = 10
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 1000
	}
	if c.MaxBatch < c.MinBatch {
		c.MaxBatch = c.MinBatch
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	if c.Trace == nil {
		c.Trace = noopTrace{}
	}
	return c
}

// Pool is a multi-queue, weight-fair daemon task pool.
type Pool struct {
	cfg Config

	table    *queueTable
	source   atomic.Pointer[dispatchSource]
	swapMu   sync.Mutex
	notEmpty *event
	emptyEvt *event
	workset  *workset

	busyMu      sync.Mutex
	busyFactors map[QueueName]float64

	worklen atomic.Int64
	traceSeq atomic.Uint64

	inWorker *goroutineFlags

	hooksMu sync.Mutex
	hooks   []func()

	startedMu sync.Mutex
	started   bool
	closing   atomic.Bool
	pid       int

	wg sync.WaitGroup
}

// NewPool constructs a Pool with the given configuration. The pool is
// not started until Start is called.
func NewPool(cfg Config) *Pool {
	cfg = cfg.normalized()
	p := &Pool{
		cfg:         cfg,
		table:       newQueueTable(),
		notEmpty:    newEvent(false),
		emptyEvt:    newEvent(true),
		workset:     newWorkset(),
		busyFactors: make(map[QueueName]float64),
		inWorker:    newGoroutineFlags(),
	}
	p.source.Store(exhaustedSource)
	return p
}

// Start spawns the worker goroutines. Calling Start on an
// already-started pool is a no-op.
func (p *Pool) Start() error {
	p.startedMu.Lock()
	defer p.startedMu.Unlock()
	if p.started {
		if p.pid != os.Getpid() {
			// A fork happened (rare for Go, but the contract is kept for
			// parity with the original pool's fork-detection behavior):
			// the old worker goroutines didn't survive into this process
			// view, so treat this as a fresh start.
			p.started = false
		} else {
			return nil
		}
	}
	p.closing.Store(false)
	p.pid = os.Getpid()
	p.started = true
	p.populateWorkers()
	return nil
}

// populateWorkers spawns cfg.Workers worker goroutines on every call.
// It does not count workers that are already running, so it does not
// top up a partially exited pool; Start calls it only when the pool is
// not already started.
func (p *Pool) populateWorkers() {
	for i := 0; i < p.cfg.Workers; i++ {
		slot := i
		p.wg.Add(1)
		go p.runWorker(slot)
	}
}

// IsStarted reports whether the pool is currently started in this
// process.
func (p *Pool) IsStarted() bool {
	p.startedMu.Lock()
	defer p.startedMu.Unlock()
	return p.started && p.pid == os.Getpid() && !p.closing.Load()
}

func (p *Pool) assertStarted() error {
	if !p.IsStarted() {
		return ErrNotStarted
	}
	return nil
}

// ApplyAsync submits task to queue and returns immediately. Errors
// returned by task are logged and never surfaced to the caller.
func (p *Pool) ApplyAsync(task Task, queue QueueName) error {
	if p.closing.Load() {
		return ErrClosed
	}
	if err := p.assertStarted(); err != nil {
		// Mirrors the original's behavior of lazily starting workers on
		// first use rather than rejecting the submission outright.
		if startErr := p.Start(); startErr != nil {
			return startErr
		}
	}
	p.table.append(queue, task)
	p.worklen.Add(1)
	p.notEmpty.Set()
	p.cfg.Metrics.TaskEnqueued(queue)
	p.cfg.Trace.Record("enqueue", queue, p.traceSeq.Add(1))
	return nil
}

// SetQueuePriority sets queue's dispatch weight (alias: set_queueprio).
// A weight <= 0 is accepted but treated as 1 at read time.
func (p *Pool) SetQueuePriority(queue QueueName, weight int) {
	p.table.setWeight(queue, weight)
}

// QueuePriority returns queue's current dispatch weight (alias:
// queueprio).
func (p *Pool) QueuePriority(queue QueueName) int {
	return p.table.weight(queue)
}

// QueueLen returns an approximate count of tasks still pending for
// queue: its live backlog plus its estimated share of whatever is left
// in the current dispatch snapshot, per the busy-factor accounting
// built during the last swap (alias: QSize / qsize).
func (p *Pool) QueueLen(queue QueueName) int {
	backlog := p.table.backlogLen(queue)

	p.busyMu.Lock()
	factor := p.busyFactors[queue]
	p.busyMu.Unlock()

	remaining := p.source.Load().remaining()
	inFlight := int(factor * float64(remaining))
	total := backlog + inFlight
	p.cfg.Metrics.QueueStats(queue, total, factor)
	return total
}

// QSize is an alias for QueueLen, matching the original's qsize name.
func (p *Pool) QSize(queue QueueName) int { return p.QueueLen(queue) }

// QueueNames returns the names of all queues that currently have a
// non-empty backlog, as plain strings (for consumers outside this
// package, such as statusdump, that shouldn't need the QueueName
// type).
func (p *Pool) QueueNames() []string {
	names := p.table.names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// QueueBusyFactor returns queue's estimated share of the most recent
// dispatch swap, as recorded by the last buildSnapshot call.
func (p *Pool) QueueBusyFactor(queue QueueName) float64 {
	p.busyMu.Lock()
	defer p.busyMu.Unlock()
	return p.busyFactors[queue]
}

// Workers returns the configured worker goroutine count.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// TaskQueue returns the pool itself, for code written against an
// embedded "_taskqueue" self-accessor shape.
func (p *Pool) TaskQueue() *Pool { return p }

// InWorker reports whether the calling goroutine is currently
// executing a task dispatched by this pool.
func (p *Pool) InWorker() bool {
	if p.inWorker == nil {
		return false
	}
	return p.inWorker.isMarked()
}

// RegisterCleanupHook registers a function invoked after every task
// completes (success, error, or panic), on the same worker goroutine.
func (p *Pool) RegisterCleanupHook(hook func()) {
	p.hooksMu.Lock()
	p.hooks = append(p.hooks, hook)
	p.hooksMu.Unlock()
}

func (p *Pool) runCleanupHooks() {
	p.hooksMu.Lock()
	hooks := make([]func(), len(p.hooks))
	copy(hooks, p.hooks)
	p.hooksMu.Unlock()
	for _, h := range hooks {
		h()
	}
}

// Close stops accepting new work and signals workers to exit once
// their current snapshot is drained. It does not wait for the backlog
// to fully drain (no graceful full drain on shutdown, per spec's
// Non-goals) — combine with Join if that's needed.
func (p *Pool) Close() {
	p.closing.Store(true)
	p.notEmpty.Set()
}

// Stop is an alias for Close kept for API familiarity with the
// original pool's stop()/close() pair; both have identical semantics
// here since neither drains the backlog.
func (p *Pool) Stop() {
	p.Close()
}

// Terminate stops the pool immediately and waits for worker goroutines
// to exit, discarding any undispatched backlog.
func (p *Pool) Terminate() {
	p.closing.Store(true)
	p.notEmpty.Set()
	p.wg.Wait()
	p.startedMu.Lock()
	p.started = false
	p.startedMu.Unlock()
}

// Join blocks until the pool has no in-flight tasks and no pending
// backlog, or timeout elapses (timeout <= 0 waits forever). It does
// not stop the pool; more work submitted after Join returns is fine.
func (p *Pool) Join(timeout time.Duration) error {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if p.emptyEvt.IsSet() {
			// Re-verify under the swap mutex to close the race between
			// observing the event and a straggling append, per
			// SPEC_FULL.md/§4.3's join re-verification requirement.
			p.swapMu.Lock()
			stillEmpty := p.table.isEmpty() && p.workset.len() == 0 && p.source.Load().remaining() == 0
			p.swapMu.Unlock()
			if stillEmpty {
				return nil
			}
		}
		remaining := timeout
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return ErrJoinTimeout
			}
		}
		if !p.emptyEvt.Wait(minDuration(remaining, 200*time.Millisecond)) && timeout > 0 && time.Now().After(deadline) {
			return ErrJoinTimeout
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if a < b {
		return a
	}
	return b
}

// Subqueue returns a wrapper bound to a fixed queue name, forwarding
// submission and introspection calls to the parent pool.
func (p *Pool) Subqueue(queue QueueName) *Subqueue {
	return &Subqueue{pool: p, queue: queue}
}

func (p *Pool) panicLog(slot int, queue QueueName, r interface{}) {
	log.Error("task panicked",
		"worker", slot,
		"queue", string(queue),
		"recover", fmt.Sprint(r),
		"stack", string(debug.Stack()))
	p.cfg.Metrics.WorkerPanicked(queue)
}
