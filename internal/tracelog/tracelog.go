// Package tracelog is an append-only, checksummed, batch-committed
// event log for task lifecycle events — observability only. It is
// never replayed to reconstruct a pool's live state; Replay exists for
// offline debugging and tooling.
//
// Adapted from the append/batch-writer/replay mechanics of a
// write-ahead log, re-pointed at task lifecycle events instead of a
// job state machine, and stripped of rotation-for-recovery (there is
// no snapshot-plus-replay cycle on the other end of it to rotate
// against).
package tracelog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

type batchRequest struct {
	event Event
	errCh chan error
}

// Sink is a tracelog instance. It implements taskqueue.TraceSink.
type Sink struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	path    string
	seq     uint64

	batchChan     chan batchRequest
	bufferSize    int
	flushInterval time.Duration
	closed        chan struct{}
	wg            sync.WaitGroup
	isClosed      bool
}

var _ taskqueue.TraceSink = (*Sink)(nil)

// Open creates or appends to a trace log at path, starting a
// background batch-commit writer. bufferSize and flushInterval default
// to 100 and 10ms when <= 0.
func Open(path string, bufferSize int, flushInterval time.Duration) (*Sink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tracelog: create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tracelog: open file: %w", err)
	}

	var seq uint64
	if last, err := GetLastEvent(path); err == nil && last != nil {
		seq = last.Seq
	}

	if bufferSize <= 0 {
		bufferSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Millisecond
	}

	s := &Sink{
		file:          file,
		encoder:       json.NewEncoder(file),
		path:          path,
		seq:           seq,
		batchChan:     make(chan batchRequest, bufferSize*2),
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		closed:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.batchWriter()
	return s, nil
}

// Record implements taskqueue.TraceSink. It never blocks the caller on
// disk I/O beyond the batch writer's own commit latency, and silently
// drops the event (logging nothing further, since the pool's own
// dispatch path must never stall on a trace failure) if the sink has
// been closed.
func (s *Sink) Record(kind string, queue taskqueue.QueueName, seq uint64) {
	_ = s.Append(kind, string(queue))
}

// Append writes one event, assigning it the sink's own monotonic
// sequence number (independent of the caller-supplied seq used for
// MetricsSink/TraceSink correlation elsewhere).
func (s *Sink) Append(kind, queue string) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	event := Event{
		Seq:       seq,
		Kind:      kind,
		Queue:     queue,
		Timestamp: time.Now().UnixMilli(),
		Checksum:  calculateChecksum(kind, queue, seq),
	}

	errCh := make(chan error, 1)
	select {
	case s.batchChan <- batchRequest{event: event, errCh: errCh}:
		return <-errCh
	case <-s.closed:
		return ErrClosed
	}
}

func (s *Sink) batchWriter() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]batchRequest, 0, s.bufferSize)
	for {
		select {
		case req := <-s.batchChan:
			batch = append(batch, req)
			if len(batch) >= s.bufferSize {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-s.closed:
			if len(batch) > 0 {
				s.flushBatch(batch)
			}
			return
		}
	}
}

func (s *Sink) flushBatch(batch []batchRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flushErr error
	for i := range batch {
		if err := s.encoder.Encode(batch[i].event); err != nil {
			flushErr = fmt.Errorf("tracelog: encode event: %w", err)
			break
		}
	}
	if flushErr == nil {
		if err := s.file.Sync(); err != nil {
			flushErr = fmt.Errorf("tracelog: sync: %w", err)
		}
	}
	for i := range batch {
		batch[i].errCh <- flushErr
		close(batch[i].errCh)
	}
}

// Replay reads every event from the start of the log, verifying its
// checksum, and calls handler for each. It stops at the first error
// handler returns or the first checksum mismatch.
func (s *Sink) Replay(handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("tracelog: open for replay: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("tracelog: decode event: %w", err)
		}
		if !verifyChecksum(event) {
			return &ChecksumError{Seq: event.Seq, Expected: calculateChecksum(event.Kind, event.Queue, event.Seq), Actual: event.Checksum}
		}
		if err := handler(&event); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes any pending batch and closes the underlying file. The
// sink must not be used after Close.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	close(s.closed)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// GetLastEvent scans path from the start and returns the last
// successfully decoded event, or nil if the file is empty.
func GetLastEvent(path string) (*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var last *Event
	for {
		var e Event
		if err := decoder.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			return last, nil
		}
		ev := e
		last = &ev
	}
	return last, nil
}
