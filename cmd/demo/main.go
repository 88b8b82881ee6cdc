// Command demo drives a small weighted multi-queue pool so the
// dispatch fairness behavior can be observed live: a "fast" queue at
// high weight against a "slow" queue at low weight, printing queue
// depth every 100ms until both drain or Ctrl+C is pressed.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChuLiYu/weightpool/pkg/taskqueue"
)

func main() {
	pool := taskqueue.NewPool(taskqueue.Config{
		Workers:  4,
		MinBatch: 5,
		MaxBatch: 200,
	})
	pool.SetQueuePriority("fast", 8)
	pool.SetQueuePriority("slow", 1)

	if err := pool.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start pool: %v\n", err)
		os.Exit(1)
	}

	const fastCount = 400
	const slowCount = 400
	for i := 0; i < fastCount; i++ {
		n := i
		pool.ApplyAsync(func() error {
			time.Sleep(time.Millisecond)
			_ = n
			return nil
		}, "fast")
	}
	for i := 0; i < slowCount; i++ {
		n := i
		pool.ApplyAsync(func() error {
			time.Sleep(time.Millisecond)
			_ = n
			return nil
		}, "slow")
	}

	fmt.Printf("✓ Enqueued %d 'fast' tasks (weight 8) and %d 'slow' tasks (weight 1)\n", fastCount, slowCount)
	fmt.Println("⚡ Workers are draining both queues now; the weighted swap should favor 'fast'...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nReceived shutdown signal, stopping gracefully...")
			pool.Terminate()
			return
		case <-ticker.C:
			fastLen := pool.QueueLen("fast")
			slowLen := pool.QueueLen("slow")
			if fastLen == 0 && slowLen == 0 {
				fmt.Println("✓ Both queues drained")
				pool.Terminate()
				return
			}
			fmt.Printf("📊 fast=%-5d slow=%-5d\n", fastLen, slowLen)
		}
	}
}
