package taskqueue

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID returns the calling goroutine's numeric id, parsed out
// of runtime.Stack's header line ("goroutine 123 [running]: ...").
// Go exposes no public API for goroutine identity; this is the
// closest available analogue to the OS-provided thread-local store
// the original pool's in_worker() flag relies on (see SPEC_FULL.md
// §4, "in_worker()"). Kept isolated to this one file.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// goroutineFlags is a small goroutine-keyed boolean set, used only to
// answer InWorker() from arbitrary code running synchronously inside
// a task invocation.
type goroutineFlags struct {
	mu  sync.Mutex
	set map[uint64]struct{}
}

func newGoroutineFlags() *goroutineFlags {
	return &goroutineFlags{set: make(map[uint64]struct{})}
}

func (g *goroutineFlags) mark(working bool) {
	id := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if working {
		g.set[id] = struct{}{}
	} else {
		delete(g.set, id)
	}
}

func (g *goroutineFlags) isMarked() bool {
	id := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.set[id]
	return ok
}
