package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/training-center-api/pkg/config"
	"github.com/noah-isme/training-center-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "training-center-api",
	Short: "Training center enrollment and scheduling API",
	Long: `Serves the enrollment lifecycle, group capacity manager,
session scheduler and occupancy views over REST.

Example usage:
  training-center-api serve              # start the HTTP server
  training-center-api migrate up         # apply schema migrations`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// bootstrap loads configuration and the process logger shared by every subcommand.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}
