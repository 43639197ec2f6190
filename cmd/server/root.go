package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pinpoint-prep/backend/internal/config"
	"github.com/pinpoint-prep/backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "pinpoint",
	Short:        "Adaptive SAT practice backend",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
