package taskqueue

import (
	"fmt"
	"runtime/debug"
	"time"
)

const exhaustedPollInterval = 250 * time.Millisecond

// runWorker is a worker goroutine's main loop: pull a task from the
// dispatch core, run it with panic isolation, run cleanup hooks,
// repeat until the pool closes and the dispatch core reports no more
// work, mirroring the original worker() static method's shape.
func (p *Pool) runWorker(slot int) {
	defer p.wg.Done()
	defer func() {
		// A panic outside the task itself is an internal invariant
		// violation: log it and let only this worker exit.
		if r := recover(); r != nil {
			log.Error("worker exiting after internal error",
				"worker", slot,
				"recover", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	for {
		tt, ok := p.dequeueOne(slot)
		if !ok {
			return
		}

		p.inWorker.mark(true)
		queue := tt.queue
		p.cfg.Metrics.TaskDispatched(queue)
		p.cfg.Trace.Record("dispatch", queue, p.traceSeq.Add(1))

		start := time.Now()
		func() {
			failed := false
			defer func() {
				if r := recover(); r != nil {
					p.panicLog(slot, queue, r)
					failed = true
				}
				if failed {
					p.cfg.Metrics.TaskFailed(queue)
					p.cfg.Trace.Record("fail", queue, p.traceSeq.Add(1))
				} else {
					p.cfg.Metrics.TaskCompleted(queue, time.Since(start))
					p.cfg.Trace.Record("complete", queue, p.traceSeq.Add(1))
				}
			}()
			if err := tt.task(); err != nil {
				log.Error("task returned error", "worker", slot, "queue", string(queue), "error", err)
				failed = true
			}
		}()
		p.inWorker.mark(false)
		p.runCleanupHooks()
	}
}

// dequeueOne pulls the next task for worker slot, blocking as needed.
// Returns ok=false once the pool is closing and the current snapshot is
// drained, telling the worker to exit; tasks still waiting in the queue
// table's backlogs are not dispatched. This is the Go shape of _dequeue's
// dispatch-state-machine loop (§4.3).
func (p *Pool) dequeueOne(slot int) (taggedTask, bool) {
	for {
		src := p.source.Load()

		if src == exhaustedSource && p.table.isEmpty() && !p.notEmpty.IsSet() {
			p.workset.discard(slot)
			if p.workset.len() == 0 && p.table.isEmpty() {
				p.emptyEvt.Set()
			}
		} else {
			p.workset.add(slot)
		}

		if tt, ok := src.pop(); ok {
			p.worklen.Add(-1)
			return tt, true
		}

		// Snapshot (or sentinel) exhausted: decide whether to wait or swap.
		p.swapMu.Lock()
		cur := p.source.Load()
		if cur == exhaustedSource {
			if !p.closing.Load() && (!p.table.isEmpty() || p.notEmpty.IsSet()) {
				// A producer enqueued while dispatch was exhausted: swap
				// the live backlogs in instead of waiting.
				p.buildSnapshot(0)
				p.swapMu.Unlock()
				continue
			}
			p.swapMu.Unlock()
			if p.closing.Load() {
				return taggedTask{}, false
			}
			p.notEmpty.Wait(exhaustedPollInterval)
			continue
		}

		p.workset.add(slot)
		if tt, ok := cur.pop(); ok {
			p.swapMu.Unlock()
			p.worklen.Add(-1)
			return tt, true
		}
		if p.closing.Load() {
			p.swapMu.Unlock()
			return taggedTask{}, false
		}
		p.buildSnapshot(0)
		p.swapMu.Unlock()
	}
}
