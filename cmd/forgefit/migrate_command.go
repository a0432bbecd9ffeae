package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forgefit/internal/adapters/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL schema to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Storage.IsSQL() {
				return errSQLOnly
			}
			if err := cfg.Storage.Validate(); err != nil {
				return err
			}

			db, err := storage.Open(cmd.Context(), cfg.Storage.Driver, cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := storage.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			current, err := storage.SchemaVersion(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s); schema version %d of %d\n",
				applied, current, storage.LatestSchemaVersion())
			return nil
		},
	}
}
