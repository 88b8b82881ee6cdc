package taskqueue

import "time"

const (
	stragglerSleep     = 100 * time.Microsecond
	stragglerMaxRounds = 8
	emptyRetryMaxDepth = 2
)

// queueRange is one queue's contribution to a swap: either a detached
// backlog (moved), a freshly copied sub-slice, or a zero-copy view
// into the still-live backlog.
type queueRange struct {
	name   QueueName
	tasks  []Task
	weight int
	moved  bool
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// swapSlots computes the single shared `slots` value for this round,
// per chorde/threadpool.py's __swap_queues: the minimum, over every
// queue with pending work, of its full backlog length divided by its
// weight, clamped to [minBatch, maxBatch]. Every queue's batch this
// round is slots*weight, so every queue is measured against the same
// yardstick instead of independently rounding its own pending/weight —
// the thing that lets weight ratios hold up once queues saturate.
func (p *Pool) swapSlots(infos []queueInfo) int {
	if len(infos) == 0 {
		return p.cfg.MinBatch
	}
	slots := p.cfg.MaxBatch
	for _, qi := range infos {
		s := qi.fullLen / qi.weight
		if s < slots {
			slots = s
		}
	}
	return clampInt(slots, p.cfg.MinBatch, p.cfg.MaxBatch)
}

// takeQueueRange decides move vs copy-slice vs zero-copy-slice for one
// queue and mutates the table accordingly, under the table mutex. It
// mirrors __swap_queues' per-queue qpos/margin decision tree: batch is
// handed in already computed from this round's shared slots value,
// never re-derived per queue.
func (p *Pool) takeQueueRange(name QueueName, batch, weight int) queueRange {
	p.table.mu.Lock()
	defer p.table.mu.Unlock()

	e, ok := p.table.entries[name]
	if !ok || e.pendingLen() == 0 {
		return queueRange{name: name, weight: weight}
	}

	pending := e.pendingLen()
	fullLen := len(e.backlog)

	// margin = max(this queue's weight, minBatch): how far short of
	// covering the whole pending backlog `batch` is allowed to fall
	// and still trigger a full move, per chorde's margin calculation.
	margin := weight
	if p.cfg.MinBatch > margin {
		margin = p.cfg.MinBatch
	}

	maxSlice := p.cfg.MaxSlice
	if maxSlice <= 0 {
		maxSlice = fullLen / 2
		if maxSlice < 1 {
			maxSlice = 1
		}
	}

	switch {
	case batch >= pending-margin:
		// Take everything: detach the whole backlog (move arm). Cheapest
		// when there's nothing (or next to nothing) left behind to
		// preserve order for.
		tasks := e.backlog[e.cursor:]
		delete(p.table.entries, name)
		return queueRange{name: name, tasks: tasks, weight: weight, moved: true}

	case e.cursor > maxSlice:
		// The read cursor has drifted past maxSlice: the consumed-but-
		// unfreed prefix of the backing array would otherwise keep
		// growing forever under sustained saturation, so compact now —
		// copy the batch out and slide the remainder to the front,
		// matching `del q[:qpos+batch]`.
		start := e.cursor
		end := start + batch
		if end > fullLen {
			end = fullLen
		}
		tasks := make([]Task, end-start)
		copy(tasks, e.backlog[start:end])
		remainder := e.backlog[end:]
		compacted := make([]Task, len(remainder))
		copy(compacted, remainder)
		e.backlog = compacted
		e.cursor = 0
		return queueRange{name: name, tasks: tasks, weight: weight}

	default:
		// Cursor is still close to the front: take a zero-copy view and
		// just advance the cursor, leaving the backlog (and everything
		// after it) alone. The three-index form caps capacity at the
		// view's length so a stray append through it cannot clobber
		// not-yet-read data sharing the same backing array.
		start := e.cursor
		end := start + batch
		if end > fullLen {
			end = fullLen
		}
		view := e.backlog[start:end:end]
		e.cursor = end
		return queueRange{name: name, tasks: view, weight: weight}
	}
}

// drainStragglers re-polls the table for a queue name that was fully
// detached (moved) earlier in this swap, picking up anything a
// producer appended in the meantime, per SPEC_FULL.md §4's straggler
// pass.
func (p *Pool) drainStragglers(name QueueName) []Task {
	p.table.mu.Lock()
	defer p.table.mu.Unlock()
	e, ok := p.table.entries[name]
	if !ok || e.pendingLen() == 0 {
		return nil
	}
	tasks := e.backlog[e.cursor:]
	delete(p.table.entries, name)
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// interleave performs weighted round-robin over the collected ranges:
// each round takes up to `weight` consecutive tasks per active queue,
// dropping a queue from rotation once its range is exhausted. FIFO
// order within a queue is preserved because each queue's own range is
// already in submission order. The output tags every task with its
// source queue name so dispatch/complete/fail metrics and trace
// events downstream can attribute to the right queue even after
// ranges have been flattened into one interleaved list.
func interleave(ranges []queueRange) []taggedTask {
	total := 0
	active := make([]*queueRange, 0, len(ranges))
	for i := range ranges {
		if len(ranges[i].tasks) > 0 {
			total += len(ranges[i].tasks)
			active = append(active, &ranges[i])
		}
	}
	out := make([]taggedTask, 0, total)
	for len(active) > 0 {
		next := active[:0]
		for _, r := range active {
			take := r.weight
			if take < 1 {
				take = 1
			}
			if take > len(r.tasks) {
				take = len(r.tasks)
			}
			for _, t := range r.tasks[:take] {
				out = append(out, taggedTask{queue: r.name, task: t})
			}
			r.tasks = r.tasks[take:]
			if len(r.tasks) > 0 {
				next = append(next, r)
			}
		}
		active = next
	}
	return out
}

// buildSnapshot is the swap. Must be called with swapMu held. It
// replaces p.source with a freshly built dispatchSource (or publishes
// the exhausted sentinel if nothing was found), and updates busy
// factors for approximate-length reporting.
func (p *Pool) buildSnapshot(depth int) {
	names := p.table.names()
	infos := make([]queueInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, p.table.info(name))
	}

	slots := p.swapSlots(infos)

	ranges := make([]queueRange, 0, len(infos))
	for _, qi := range infos {
		batch := slots * qi.weight
		ranges = append(ranges, p.takeQueueRange(qi.name, batch, qi.weight))
	}

	stragglers := false
	for _, r := range ranges {
		if r.moved {
			stragglers = true
			break
		}
	}
	if stragglers {
		for round := 0; round < stragglerMaxRounds; round++ {
			time.Sleep(stragglerSleep)
			gained := false
			for i := range ranges {
				if !ranges[i].moved {
					continue
				}
				more := p.drainStragglers(ranges[i].name)
				if len(more) > 0 {
					ranges[i].tasks = append(ranges[i].tasks, more...)
					gained = true
				}
			}
			if !gained {
				break
			}
		}
	}

	contributed := make(map[QueueName]int, len(ranges))
	for _, r := range ranges {
		contributed[r.name] = len(r.tasks)
	}

	work := interleave(ranges)
	p.recomputeBusyFactors(contributed, len(work))

	if len(work) == 0 {
		wasRunning := p.source.Load() != exhaustedSource
		p.source.Store(exhaustedSource)
		p.notEmpty.Clear()
		if p.table.isEmpty() && p.workset.len() == 0 {
			p.emptyEvt.Set()
		}
		if wasRunning && depth < emptyRetryMaxDepth {
			p.buildSnapshot(depth + 1)
		}
		return
	}

	p.emptyEvt.Clear()
	src := &dispatchSource{tasks: work}
	p.source.Store(src)
	p.notEmpty.Set()
}

// recomputeBusyFactors records each queue's share of this swap's total
// work list, used by QueueLen to approximate backlog length for
// queues currently being drained from a live snapshot (§4.2's "busy
// factor" metadata).
func (p *Pool) recomputeBusyFactors(contributed map[QueueName]int, total int) {
	p.busyMu.Lock()
	defer p.busyMu.Unlock()
	factors := make(map[QueueName]float64, len(contributed))
	if total > 0 {
		for name, n := range contributed {
			if n > 0 {
				factors[name] = float64(n) / float64(total)
			}
		}
	}
	p.busyFactors = factors
}
