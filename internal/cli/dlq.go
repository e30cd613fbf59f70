package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dlqLimit int

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Manage the dead letter queue",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in the dead letter queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		jobs, err := svc.DLQList(cmd.Context(), dlqLimit)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("Dead letter queue is empty")
			return nil
		}

		fmt.Printf("=== Dead Letter Queue (%d shown) ===\n", len(jobs))
		for i := range jobs {
			printJob(&jobs[i])
		}
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Move a dead job back to pending with attempts reset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		job, err := svc.DLQRetry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Job %q moved back to %s, attempts reset\n", job.ID, job.State)
		return nil
	},
}

func init() {
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", 20, "maximum number of jobs to display")
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
