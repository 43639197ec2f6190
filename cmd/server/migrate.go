package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pinpoint-prep/backend/internal/database"
	"github.com/pinpoint-prep/backend/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info(ctx, "migrations applied", logger.String("driver", cfg.DBDriver))
	return nil
}
