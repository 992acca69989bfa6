package main

import (
	"context"
	"fmt"
	"time"

	"travel-booking-backend/config"
	"travel-booking-backend/internal/repository/mysql"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the booking tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(config.Load())
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := mysql.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
