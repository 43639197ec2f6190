package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pinpoint-prep/backend/internal/config"
	"github.com/pinpoint-prep/backend/internal/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if userID <= 0 {
			return errors.New("--user must be a positive user ID")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("jwt_secret is not configured")
		}

		token, err := middleware.NewAuthenticator(cfg.JWTSecret).IssueToken(userID, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64("user", 0, "user ID to put in the token")
	tokenCmd.Flags().Duration("ttl", 72*time.Hour, "token lifetime")
}
