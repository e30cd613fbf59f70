package cli

import (
	"fmt"

	"queuectl/internal/domain"
	"queuectl/internal/worker"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show job state counts and active workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := svc.Stats(cmd.Context())
		if err != nil {
			return err
		}

		activeWorkers := 0
		pidFile := worker.NewPIDFile(cfg.PIDFile)
		if pidFile.Alive() {
			if info, err := pidFile.Read(); err == nil {
				activeWorkers = info.Count
			}
		}

		fmt.Println("=== Queue Status ===")
		fmt.Printf("Active Workers: %d\n", activeWorkers)
		fmt.Println("\nJob States:")
		total := 0
		for _, state := range domain.States {
			fmt.Printf("  %-12s: %d\n", state, stats[state])
			total += stats[state]
		}
		fmt.Printf("\nTotal Jobs: %d\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
