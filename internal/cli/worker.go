package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queuectl/internal/adapter/shell"
	"queuectl/internal/worker"

	"github.com/spf13/cobra"
)

var (
	workerCount   int
	workerRecover bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage worker processes",
}

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run worker loops in the foreground until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		pidFile := worker.NewPIDFile(cfg.PIDFile)
		if pidFile.Alive() {
			return fmt.Errorf("workers already running (pid file %s)", cfg.PIDFile)
		}

		_, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		logger := newLogger()

		if workerRecover {
			released, err := store.ReleaseStale(cmd.Context(), 0)
			if err != nil {
				return fmt.Errorf("release stale jobs: %w", err)
			}
			if released > 0 {
				logger.Info("released stale processing jobs", "count", released)
			}
		}

		pool := worker.NewPool(store, shell.New(), logger,
			worker.WithPollInterval(cfg.PollInterval.Duration),
			worker.WithBackoffBase(cfg.BackoffBase),
		)
		if err := pool.Start(workerCount); err != nil {
			return err
		}
		if err := pidFile.Write(workerCount); err != nil {
			pool.Stop()
			return fmt.Errorf("write pid file: %w", err)
		}

		logger.Info("workers running", "count", workerCount, "poll_interval", cfg.PollInterval.Duration)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())

		pool.Stop()
		pidFile.Remove()
		logger.Info("all workers stopped")
		return nil
	},
}

var workerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running worker pool gracefully",
	RunE: func(cmd *cobra.Command, args []string) error {
		pidFile := worker.NewPIDFile(cfg.PIDFile)
		info, err := pidFile.Read()
		if os.IsNotExist(err) {
			fmt.Println("No workers are running")
			return nil
		}
		if err != nil {
			return err
		}
		if !pidFile.Alive() {
			fmt.Println("No workers are running (removing stale pid file)")
			return pidFile.Remove()
		}

		fmt.Printf("Stopping %d worker(s) (PID %d)...\n", info.Count, info.PID)
		if err := pidFile.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("signal worker process: %w", err)
		}

		// The pool finishes in-flight jobs before exiting; poll until the
		// process is gone.
		deadline := time.Now().Add(30 * time.Second)
		for pidFile.Alive() {
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out waiting for PID %d to exit", info.PID)
			}
			time.Sleep(200 * time.Millisecond)
		}
		fmt.Println("All workers stopped")
		return nil
	},
}

var workerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a worker pool is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		pidFile := worker.NewPIDFile(cfg.PIDFile)
		if !pidFile.Alive() {
			fmt.Println("No workers are running")
			return nil
		}
		info, err := pidFile.Read()
		if err != nil {
			return err
		}
		fmt.Printf("%d worker(s) running (PID %d, started %s)\n",
			info.Count, info.PID, info.StartedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	workerStartCmd.Flags().IntVar(&workerCount, "count", 1, "number of workers to start")
	workerStartCmd.Flags().BoolVar(&workerRecover, "recover", false,
		"re-queue jobs left in processing by a crashed worker before starting")
	workerCmd.AddCommand(workerStartCmd)
	workerCmd.AddCommand(workerStopCmd)
	workerCmd.AddCommand(workerStatusCmd)
	rootCmd.AddCommand(workerCmd)
}
