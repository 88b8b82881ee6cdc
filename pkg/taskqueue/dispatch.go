package taskqueue

import "sync/atomic"

// taggedTask pairs a task with the queue it was dispatched from, so
// that once ranges are flattened into one interleaved work list a
// worker can still attribute dispatch/complete/fail/panic metrics and
// trace events to the correct queue.
type taggedTask struct {
	queue QueueName
	task  Task
}

// dispatchSource is an immutable, once-published work list with a
// lock-free per-task cursor. Workers pop from it without touching the
// swap mutex until it is exhausted.
type dispatchSource struct {
	tasks  []taggedTask
	cursor atomic.Int64
}

// exhaustedSource is the sentinel value meaning "no snapshot currently
// running" — the dispatch-state-machine's exhausted state (§3 Dispatch
// state). It is a distinct pointer identity, never dereferenced for its
// (empty) tasks slice in the hot path.
var exhaustedSource = &dispatchSource{}

// pop returns the next task in the source, or ok=false once the
// source is drained (or is the exhausted sentinel).
func (s *dispatchSource) pop() (taggedTask, bool) {
	if s == exhaustedSource {
		return taggedTask{}, false
	}
	i := s.cursor.Add(1) - 1
	if i < 0 || i >= int64(len(s.tasks)) {
		return taggedTask{}, false
	}
	return s.tasks[i], true
}

func (s *dispatchSource) remaining() int64 {
	if s == exhaustedSource {
		return 0
	}
	n := int64(len(s.tasks)) - s.cursor.Load()
	if n < 0 {
		return 0
	}
	return n
}
