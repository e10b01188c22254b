package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobposting-crawler/internal/metrics"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl listings for one or more keywords",
		Long: `Searches each keyword in turn, walks result pages until a stop
condition, and upserts every posting found. Re-running is safe: postings are
keyed by job id and converge to the latest values.`,
		Example: `  jobcrawler crawl --keyword python --keyword "data engineer" --pages 3 --delay 2s
  jobcrawler crawl --keyword golang --store memory --export-csv`,
		RunE: runCrawlCommand,
	}

	f := cmd.Flags()
	f.StringArrayP("keyword", "k", nil, "search keyword (repeatable)")
	f.Int("pages", 1, "maximum listing pages per keyword (0 = until exhausted)")
	f.Int("max-postings", 300, "maximum postings per keyword (0 = no cap)")
	f.Duration("delay", 2*time.Second, "minimum gap between listing pages (must be > 0)")
	f.Bool("fetch-summary", false, "fetch each detail page for a short summary")
	f.Duration("summary-delay", time.Second, "minimum gap between detail pages (must be > 0)")
	f.String("dsn", "", "postgres connection string")
	f.String("store", "", "store driver (postgres, memory)")
	f.Bool("export-csv", false, "write a CSV snapshot per keyword")
	f.String("export-dir", "", "directory for local CSV snapshots")
	f.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := a.cfg, a.logger
	if len(cfg.Crawler.Keywords) == 0 {
		return errors.New("at least one --keyword is required")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger.Named("metrics")); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	exporter, closeExporter, err := buildExporter(ctx, cfg.Export)
	if err != nil {
		return err
	}
	defer closeExporter()

	engine, err := buildEngine(cfg, store, exporter, logger)
	if err != nil {
		return err
	}

	stats, err := engine.Run(ctx, cfg.Crawler.Keywords)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("crawl interrupted; rerun to resume", zap.Int("keywords", stats.Keywords))
		}
		return fmt.Errorf("run crawler: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d keywords, %d pages, %d postings, %d rows affected, %d dropped\n",
		stats.RunID, stats.Keywords, stats.Pages, stats.Postings, stats.Affected, stats.Dropped)
	return nil
}
