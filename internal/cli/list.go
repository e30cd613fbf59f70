package cli

import (
	"fmt"
	"time"

	"queuectl/internal/domain"

	"github.com/spf13/cobra"
)

var (
	listState string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, optionally filtered by state",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		jobs, err := svc.List(cmd.Context(), domain.State(listState), listLimit)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}

		fmt.Printf("=== Jobs (%d shown) ===\n", len(jobs))
		for i := range jobs {
			printJob(&jobs[i])
		}
		return nil
	},
}

func printJob(job *domain.Job) {
	fmt.Printf("\nID: %s\n", job.ID)
	fmt.Printf("  Command:  %s\n", job.Command)
	fmt.Printf("  State:    %s\n", job.State)
	fmt.Printf("  Attempts: %d/%d\n", job.Attempts, job.MaxRetries)
	fmt.Printf("  Created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.State == domain.StatePending && job.NextAttemptAt.After(time.Now()) {
		fmt.Printf("  Next attempt: %s\n", job.NextAttemptAt.Format(time.RFC3339))
	}
	if job.LastError != "" {
		fmt.Printf("  Error:    %s\n", job.LastError)
	}
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state (pending|processing|completed|failed|dead)")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of jobs to display")
	rootCmd.AddCommand(listCmd)
}
