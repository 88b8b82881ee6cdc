// Package config loads the YAML configuration file that drives
// cmd/queued: pool sizing, per-queue weights, and where the tracelog
// and status dump live on disk.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete on-disk configuration structure.
type Config struct {
	Pool struct {
		Workers  int `yaml:"workers"`
		MinBatch int `yaml:"min_batch"`
		MaxBatch int `yaml:"max_batch"`
		MaxSlice int `yaml:"max_slice"`
	} `yaml:"pool"`

	Queues map[string]int `yaml:"queues"`

	Tracelog struct {
		Enabled       bool          `yaml:"enabled"`
		Path          string        `yaml:"path"`
		BufferSize    int           `yaml:"buffer_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"tracelog"`

	Statusdump struct {
		Enabled  bool          `yaml:"enabled"`
		Path     string        `yaml:"path"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"statusdump"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Pool.Workers = 4
	cfg.Pool.MinBatch = 10
	cfg.Pool.MaxBatch = 1000
	cfg.Tracelog.Path = "data/trace.log"
	cfg.Tracelog.BufferSize = 100
	cfg.Tracelog.FlushInterval = 10 * time.Millisecond
	cfg.Statusdump.Path = "data/status.json"
	cfg.Statusdump.Interval = 2 * time.Second
	cfg.Metrics.Port = 9090
	return cfg
}

// Load reads and parses path. A missing file is not an error: it
// returns Default() so queued can run with zero setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse YAML: %w", err)
	}
	return cfg, nil
}
