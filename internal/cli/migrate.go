package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/config"
	"github.com/gosuda/taskboard/internal/store/postgres"
)

// MigrateCmd returns the command that applies the database schema.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := postgres.New(cmd.Context(), cfg.Database.DSN(), 1)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}

			log.Info().Str("db", cfg.Database.DBName).Msg("schema applied")
			fmt.Fprintln(cmd.OutOrStdout(), "✓ schema applied")
			return nil
		},
	}
}
