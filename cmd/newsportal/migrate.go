package main

import (
	"database/sql"
	"fmt"

	idb "newsportal/internal/infra/database"
	"newsportal/internal/infra/logger"

	"github.com/spf13/cobra"
)

func migrateUp(db *sql.DB) error {
	return idb.MigrateUp(db, logger.Component("migrate"))
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return migrateUp(db)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return idb.MigrateDown(db, steps, logger.Component("migrate"))
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			version, dirty, err := idb.MigrationVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}
