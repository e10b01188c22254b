package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
)

// newNormalizeCmd creates the 'normalize' subcommand, which re-applies the
// current skill and date rules to rows already stored.
func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Re-normalize skills and dates of stored postings",
		Long: `Reads every stored posting, re-runs skill canonicalization and date
resolution over the stored values, and updates rows whose values changed.
Already normalized values are left as they are.`,
		RunE: runNormalizeCommand,
	}
	cmd.Flags().String("dsn", "", "postgres connection string")
	cmd.Flags().String("store", "", "store driver (postgres, memory)")
	return cmd
}

func runNormalizeCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	norm, err := buildNormalizer(a.cfg.Normalize)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	updated, err := store.Renormalize(ctx, crawler.RenormalizeWith(norm))
	if err != nil {
		return fmt.Errorf("renormalize: %w", err)
	}
	a.logger.Info("renormalize finished", zap.Int64("updated", updated))
	fmt.Fprintf(cmd.OutOrStdout(), "%d rows updated\n", updated)
	return nil
}
