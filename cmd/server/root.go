package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"core-ledger/internal/config"
	"core-ledger/internal/server"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the core ledger HTTP service",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			// Initialize logger
			slog.SetDefault(server.NewLogger(cfg, os.Stdout))

			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "set the config file path")

	return rootCmd
}

// run serves until ctx is cancelled or the process receives SIGINT/SIGTERM.
func run(ctx context.Context, cfg *config.Config) error {
	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		return err
	}

	slog.Info("Server started successfully", "port", port)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := serverInstance.Stop(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Server stopped")
	return nil
}
