package cli

import (
	"fmt"
	"log/slog"
	"os"

	"queuectl/internal/adapter/sqlite"
	"queuectl/internal/config"
	"queuectl/internal/domain"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "queuectl",
	Short:         "CLI-based background job queue",
	Long:          "queuectl runs shell commands as background jobs with automatic retry and a dead letter queue.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openService opens the configured store and wraps it in the domain
// service. The caller must Close the returned store.
func openService() (*domain.Service, *sqlite.Store, error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return domain.NewService(store), store, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
