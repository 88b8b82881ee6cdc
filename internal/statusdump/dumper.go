// Package statusdump periodically persists a point-in-time summary of
// a task pool's queues to disk: per-queue backlog length, weight, and
// busy factor, plus worker count — for operators and monitoring
// scripts that would rather stat a JSON file than scrape metrics.
//
// Writes are atomic (temp file + os.Rename) so a reader never observes
// a half-written dump. There is no recovery path built on top of this
// data: unlike a system snapshot that a WAL replays against, a status
// dump is purely observational and is never loaded back into a pool.
package statusdump

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

var (
	ErrCorruptedDump       = errors.New("statusdump: file is corrupted")
	ErrIncompatibleVersion = errors.New("statusdump: schema version is incompatible")
)

const schemaVersion = 1

// QueueStatus is one queue's snapshot at dump time.
type QueueStatus struct {
	Name       string  `json:"name"`
	Length     int     `json:"length"`
	Weight     int     `json:"weight"`
	BusyFactor float64 `json:"busy_factor"`
}

// Status is the full dump payload.
type Status struct {
	SchemaVer   int           `json:"schema_ver"`
	Workers     int           `json:"workers"`
	GeneratedAt int64         `json:"generated_at"`
	Queues      []QueueStatus `json:"queues"`
}

// Dumper writes Status snapshots to a fixed path, atomically.
type Dumper struct {
	path string
	mu   sync.Mutex
}

// NewDumper creates a dumper writing to path.
func NewDumper(path string) *Dumper {
	return &Dumper{path: path}
}

// Write atomically persists status to disk: write to a temp file in
// the same directory, then os.Rename over the target path.
func (d *Dumper) Write(status Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	status.SchemaVer = schemaVersion

	jsonBytes, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("statusdump: marshal: %w", err)
	}

	tmpPath := d.path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("statusdump: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("statusdump: rename: %w", err)
	}
	return nil
}

// Load reads the last written status. A missing file (first run)
// returns an empty Status (no queues, only SchemaVer set) with no
// error.
func (d *Dumper) Load() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var status Status

	jsonBytes, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{SchemaVer: schemaVersion}, nil
		}
		return status, fmt.Errorf("statusdump: read: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, &status); err != nil {
		return status, fmt.Errorf("%w: %v", ErrCorruptedDump, err)
	}

	if status.SchemaVer != schemaVersion {
		return status, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, status.SchemaVer, schemaVersion)
	}

	return status, nil
}

// Exists reports whether a dump file is present.
func (d *Dumper) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// PoolSnapshotSource is implemented by anything that can describe its
// current queue state — satisfied by *taskqueue.Pool.
type PoolSnapshotSource interface {
	QueueNames() []string
	QueueLen(queue taskqueue.QueueName) int
	QueuePriority(queue taskqueue.QueueName) int
	QueueBusyFactor(queue taskqueue.QueueName) float64
	Workers() int
}

// Capture builds a Status from a live pool.
func Capture(src PoolSnapshotSource) Status {
	names := src.QueueNames()
	queues := make([]QueueStatus, 0, len(names))
	for _, name := range names {
		qn := taskqueue.QueueName(name)
		queues = append(queues, QueueStatus{
			Name:       name,
			Length:     src.QueueLen(qn),
			Weight:     src.QueuePriority(qn),
			BusyFactor: src.QueueBusyFactor(qn),
		})
	}
	return Status{
		SchemaVer:   schemaVersion,
		Workers:     src.Workers(),
		GeneratedAt: time.Now().UnixMilli(),
		Queues:      queues,
	}
}

// RunPeriodic writes a status dump every interval until stop is
// closed. Intended to run in its own goroutine.
func RunPeriodic(d *Dumper, src PoolSnapshotSource, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = d.Write(Capture(src))
		case <-stop:
			return
		}
	}
}
