package taskqueue

import (
	"sync"
	"time"
)

// event is a resettable, level-triggered wakeup signal, the Go
// translation of threading.Event. Wait supports a timeout, which plain
// sync.Cond does not, and which the dispatch core's bounded idle poll
// (§4.3) needs.
type event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func newEvent(initial bool) *event {
	e := &event{ch: make(chan struct{})}
	if initial {
		close(e.ch)
		e.set = true
	}
	return e
}

func (e *event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

func (e *event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

func (e *event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set or timeout elapses (timeout <= 0
// waits forever). Returns true if the event was observed set.
func (e *event) Wait(timeout time.Duration) bool {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
