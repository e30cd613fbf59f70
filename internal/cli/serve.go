package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "queuectl/internal/adapter/http"
	"queuectl/internal/worker"

	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, store, err := openService()
		if err != nil {
			return err
		}
		defer store.Close()

		port := cfg.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		logger := newLogger()
		addr := fmt.Sprintf(":%d", port)
		srv := httpAdapter.NewServer(svc, worker.NewPIDFile(cfg.PIDFile), addr, cfg.MaxRetries, logger)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("dashboard listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "dashboard port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
