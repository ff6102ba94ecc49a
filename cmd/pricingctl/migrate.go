package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/logger"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			cfg := config.Load()
			log := logger.New(&cfg.Logger)

			db, err := database.Connect(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			applied, err := database.Migrate(ctx, db, log)
			if err != nil {
				return fmt.Errorf("migration failed after %d applied: %w", applied, err)
			}
			if applied == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", applied)
			return nil
		},
	}

	cmd.Flags().Duration("timeout", time.Minute, "Migration timeout")
	return cmd
}
