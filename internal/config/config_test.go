package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pool.Workers)
	assert.Equal(t, 1000, cfg.Pool.MaxBatch)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
pool:
  workers: 8
  min_batch: 5
  max_batch: 500
queues:
  reports: 8
  emails: 1
tracelog:
  enabled: true
  path: /tmp/trace.log
metrics:
  enabled: true
  port: 9100
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pool.Workers)
	assert.Equal(t, 5, cfg.Pool.MinBatch)
	assert.Equal(t, 500, cfg.Pool.MaxBatch)
	assert.Equal(t, 8, cfg.Queues["reports"])
	assert.Equal(t, 1, cfg.Queues["emails"])
	assert.True(t, cfg.Tracelog.Enabled)
	assert.Equal(t, "/tmp/trace.log", cfg.Tracelog.Path)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool: [this is not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultHasSaneFallbacks(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.Pool.Workers, 0)
	assert.Greater(t, cfg.Pool.MaxBatch, cfg.Pool.MinBatch)
	assert.NotEmpty(t, cfg.Tracelog.Path)
	assert.NotEmpty(t, cfg.Statusdump.Path)
}
