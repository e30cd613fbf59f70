package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	enqueueID         string
	enqueueMaxRetries int
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [flags] -- <command...>",
	Short: "Add a job to the queue",
	Example: `  queuectl enqueue -- echo hello
  queuectl enqueue --id job1 --max-retries 5 -- sh -c 'exit 1'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		maxRetries := cfg.MaxRetries
		if cmd.Flags().Changed("max-retries") {
			maxRetries = enqueueMaxRetries
		}

		job, err := svc.Enqueue(cmd.Context(), enqueueID, strings.Join(args, " "), maxRetries)
		if err != nil {
			return err
		}

		fmt.Printf("Job %q enqueued\n", job.ID)
		fmt.Printf("  Command:     %s\n", job.Command)
		fmt.Printf("  State:       %s\n", job.State)
		fmt.Printf("  Max retries: %d\n", job.MaxRetries)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueID, "id", "", "job id (generated if empty)")
	enqueueCmd.Flags().IntVar(&enqueueMaxRetries, "max-retries", 0, "per-job retry budget (default from config)")
	rootCmd.AddCommand(enqueueCmd)
}
