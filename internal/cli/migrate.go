package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the bank_incoming_transaction schema",
		Long: `Apply the embedded schema migrations to the configured store.

Production databases are usually owned by the ingestion side; this command is
meant for local SQLite stores and fresh PostgreSQL instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := a.open(cmd.Context(), "storage")
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			version, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", a.cfg.Database.Driver, version)
			return nil
		},
	}
}
