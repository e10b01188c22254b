package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSchemaCmd creates the 'schema' subcommand.
func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create or migrate the postings table and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), a.cfg.Store, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			a.logger.Info("schema ready", zap.String("table", a.cfg.Store.Table))
			return nil
		},
	}
	cmd.Flags().String("dsn", "", "postgres connection string")
	cmd.Flags().String("store", "", "store driver (postgres, memory)")
	return cmd
}
