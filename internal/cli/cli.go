// Package cli builds the queued command-line interface: run, submit,
// and status subcommands over a weightpool task pool.
package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChuLiYu/weightpool/internal/config"
	"github.com/ChuLiYu/weightpool/internal/metrics"
	"github.com/ChuLiYu/weightpool/internal/statusdump"
	"github.com/ChuLiYu/weightpool/internal/tracelog"
	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

var configFile string

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "queued",
		Short: "weightpool: a weighted multi-queue daemon task pool",
		Long: `queued runs a weighted multi-queue task pool:
- Per-queue dispatch weights with fair interleaving
- Optional durable trace log of task lifecycle events
- Periodic status dump for operators`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildSubmitCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the queued task pool",
		Long:  "Start the worker pool, tracelog, status dump, and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem()
		},
	}
	return cmd
}

func runSystem() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Printf("Starting queued with config: %s\n", configFile)
	log.Printf("Workers: %d, MinBatch: %d, MaxBatch: %d\n", cfg.Pool.Workers, cfg.Pool.MinBatch, cfg.Pool.MaxBatch)

	poolCfg := taskqueue.DefaultConfig()
	poolCfg.Workers = cfg.Pool.Workers
	poolCfg.MinBatch = cfg.Pool.MinBatch
	poolCfg.MaxBatch = cfg.Pool.MaxBatch
	poolCfg.MaxSlice = cfg.Pool.MaxSlice

	if cfg.Metrics.Enabled {
		poolCfg.Metrics = metrics.NewCollector()
	}

	var sink *tracelog.Sink
	if cfg.Tracelog.Enabled {
		sink, err = tracelog.Open(cfg.Tracelog.Path, cfg.Tracelog.BufferSize, cfg.Tracelog.FlushInterval)
		if err != nil {
			return fmt.Errorf("failed to open tracelog: %w", err)
		}
		defer sink.Close()
		poolCfg.Trace = sink
	}

	pool := taskqueue.NewPool(poolCfg)
	for name, weight := range cfg.Queues {
		pool.SetQueuePriority(taskqueue.QueueName(name), weight)
	}
	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			log.Printf("Starting metrics server on :%d\n", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Printf("Metrics server error: %v\n", err)
			}
		}()
	}

	var stopDump chan struct{}
	if cfg.Statusdump.Enabled {
		stopDump = make(chan struct{})
		dumper := statusdump.NewDumper(cfg.Statusdump.Path)
		go statusdump.RunPeriodic(dumper, pool, cfg.Statusdump.Interval, stopDump)
	}

	log.Println("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal, stopping gracefully...")

	if stopDump != nil {
		close(stopDump)
	}
	pool.Terminate()

	log.Println("System stopped. Goodbye!")
	return nil
}

func buildSubmitCommand() *cobra.Command {
	var taskFile string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit tasks from a JSON file",
		Long:  "Read task definitions from a JSON file, run them on a pool started in this process, and wait for them to finish.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskFile == "" {
				return fmt.Errorf("task file is required (use --file or -f)")
			}
			return submitTasks(taskFile)
		},
	}

	cmd.Flags().StringVarP(&taskFile, "file", "f", "", "JSON file containing task definitions")
	cmd.MarkFlagRequired("file")

	return cmd
}

type taskSpec struct {
	Queue string `json:"queue"`
	Name  string `json:"name"`
}

func submitTasks(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read task file: %w", err)
	}

	var specs []taskSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("failed to parse task file: %w", err)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	poolCfg := taskqueue.DefaultConfig()
	poolCfg.Workers = cfg.Pool.Workers
	pool := taskqueue.NewPool(poolCfg)
	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}
	defer pool.Terminate()

	for _, s := range specs {
		name := s.Name
		queue := taskqueue.QueueName(s.Queue)
		task := func() error {
			log.Printf("executing task %q on queue %q\n", name, queue)
			return nil
		}
		if err := pool.ApplyAsync(task, queue); err != nil {
			log.Printf("failed to submit task %q: %v\n", name, err)
			continue
		}
	}

	if err := pool.Join(30 * time.Second); err != nil {
		return fmt.Errorf("tasks did not complete before timeout: %w", err)
	}

	log.Printf("Submitted and completed %d tasks from %s\n", len(specs), filePath)
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task pool status",
		Long:  "Display the most recent status dump written by a running queued instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("\n╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                  queued Task Pool Status                    ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("📋 Configuration:")
	fmt.Printf("  └─ Config File:     %s\n", configFile)
	fmt.Printf("  └─ Worker Count:    %d\n", cfg.Pool.Workers)
	fmt.Printf("  └─ Batch Bounds:    [%d, %d]\n", cfg.Pool.MinBatch, cfg.Pool.MaxBatch)
	fmt.Println()

	dumper := statusdump.NewDumper(cfg.Statusdump.Path)
	if !dumper.Exists() {
		fmt.Println("📊 Queue Statistics:")
		fmt.Println("  └─ No status dump found (run 'queued run' to start)")
		fmt.Println()
		return nil
	}

	status, err := dumper.Load()
	if err != nil {
		return fmt.Errorf("failed to load status dump: %w", err)
	}

	fmt.Println("📊 Queue Statistics:")
	fmt.Printf("  ├─ Workers:     %d\n", status.Workers)
	fmt.Printf("  └─ Generated:   %s\n", time.UnixMilli(status.GeneratedAt).Format(time.RFC3339))
	fmt.Println()
	for _, q := range status.Queues {
		fmt.Printf("  🔹 %-20s len=%-6d weight=%-4d busy=%.2f\n", q.Name, q.Length, q.Weight, q.BusyFactor)
	}
	fmt.Println()

	fmt.Println("📡 Metrics:")
	if cfg.Metrics.Enabled {
		fmt.Printf("  └─ Status: ✅ Enabled on http://localhost:%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  └─ Status: ⚠️  Disabled")
	}
	fmt.Println()

	fmt.Println("═══════════════════════════════════════════════════════════")
	return nil
}
