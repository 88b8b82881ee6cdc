package statusdump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

func TestLoadMissingFileReturnsEmptyStatus(t *testing.T) {
	d := NewDumper(filepath.Join(t.TempDir(), "status.json"))
	status, err := d.Load()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, status.SchemaVer)
	assert.Empty(t, status.Queues)
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	d := NewDumper(filepath.Join(t.TempDir(), "status.json"))
	status := Status{
		Workers: 4,
		Queues: []QueueStatus{
			{Name: "reports", Length: 3, Weight: 2, BusyFactor: 0.5},
		},
	}
	require.NoError(t, d.Write(status))
	assert.True(t, d.Exists())

	loaded, err := d.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Workers)
	require.Len(t, loaded.Queues, 1)
	assert.Equal(t, "reports", loaded.Queues[0].Name)
	assert.Equal(t, 3, loaded.Queues[0].Length)
}

func TestLoadRejectsIncompatibleVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	err := os.WriteFile(path, []byte(`{"schema_ver":99,"workers":1,"queues":[]}`), 0o644)
	require.NoError(t, err)

	d := NewDumper(path)
	_, err = d.Load()
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

type stubSource struct {
	names   []string
	lens    map[taskqueue.QueueName]int
	weights map[taskqueue.QueueName]int
	busy    map[taskqueue.QueueName]float64
	workers int
}

func (s *stubSource) QueueNames() []string { return s.names }
func (s *stubSource) QueueLen(q taskqueue.QueueName) int {
	return s.lens[q]
}
func (s *stubSource) QueuePriority(q taskqueue.QueueName) int {
	return s.weights[q]
}
func (s *stubSource) QueueBusyFactor(q taskqueue.QueueName) float64 {
	return s.busy[q]
}
func (s *stubSource) Workers() int { return s.workers }

func TestCaptureBuildsStatusFromSource(t *testing.T) {
	src := &stubSource{
		names:   []string{"reports", "emails"},
		lens:    map[taskqueue.QueueName]int{"reports": 5, "emails": 2},
		weights: map[taskqueue.QueueName]int{"reports": 8, "emails": 1},
		busy:    map[taskqueue.QueueName]float64{"reports": 0.9, "emails": 0.1},
		workers: 6,
	}
	status := Capture(src)
	assert.Equal(t, 6, status.Workers)
	require.Len(t, status.Queues, 2)
}
