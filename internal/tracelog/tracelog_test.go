package tracelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	s, err := Open(path, 0, 0)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
}

func TestAppendAndReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	s, err := Open(path, 4, 5*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, s.Append("enqueue", "reports"))
	require.NoError(t, s.Append("dispatch", "reports"))
	require.NoError(t, s.Append("complete", "reports"))
	require.NoError(t, s.Close())

	var kinds []string
	s2, err := Open(path, 0, 0)
	require.NoError(t, err)
	defer s2.Close()

	err = s2.Replay(func(e *Event) error {
		kinds = append(kinds, e.Kind)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"enqueue", "dispatch", "complete"}, kinds)
}

func TestSeqResumesAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	s, err := Open(path, 1, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, s.Append("enqueue", "q1"))
	require.NoError(t, s.Close())

	s2, err := Open(path, 1, time.Millisecond)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Append("enqueue", "q2"))

	var last *Event
	err = s2.Replay(func(e *Event) error {
		last = e
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(2), last.Seq)
}

func TestRecordImplementsTraceSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	s, err := Open(path, 1, time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	assert.NotPanics(t, func() {
		s.Record("enqueue", "reports", 1)
	})
}

func TestGetLastEventOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.log")
	last, err := GetLastEvent(path)
	assert.NoError(t, err)
	assert.Nil(t, last)
}

func TestReplayDetectsChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	s, err := Open(path, 1, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, s.Append("enqueue", "q1"))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"kind":"enqueue"`, `"kind":"tampered"`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o644))

	s2, err := Open(path, 0, 0)
	require.NoError(t, err)
	defer s2.Close()

	err = s2.Replay(func(e *Event) error {
		return nil
	})
	var csErr *ChecksumError
	assert.ErrorAs(t, err, &csErr)
}

func TestAppendAfterCloseReturnsErrClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	s, err := Open(path, 1, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Append("enqueue", "q1")
	assert.ErrorIs(t, err, ErrClosed)
}
