package cmd

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobposting-crawler/internal/clock/system"
	"github.com/JakeFAU/jobposting-crawler/internal/config"
	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
	"github.com/JakeFAU/jobposting-crawler/internal/export"
	"github.com/JakeFAU/jobposting-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/jobposting-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/jobposting-crawler/internal/hash/sha256"
	"github.com/JakeFAU/jobposting-crawler/internal/id/uuid"
	"github.com/JakeFAU/jobposting-crawler/internal/identity"
	"github.com/JakeFAU/jobposting-crawler/internal/normalize"
	"github.com/JakeFAU/jobposting-crawler/internal/storage/gcs"
	"github.com/JakeFAU/jobposting-crawler/internal/storage/local"
	"github.com/JakeFAU/jobposting-crawler/internal/storage/memory"
	"github.com/JakeFAU/jobposting-crawler/internal/storage/postgres"
)

// postingStore is what the commands need from a store driver.
type postingStore interface {
	crawler.PostingStore
	Renormalize(ctx context.Context, rw crawler.Rewriter) (int64, error)
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (postingStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; postings are discarded on exit")
		return memory.NewPostingStore(), func() {}, nil
	case config.DriverPostgres:
		store, err := postgres.NewPostingStore(ctx, postgres.Config{
			DSN:             cfg.DSN,
			Table:           cfg.Table,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func buildNormalizer(cfg config.NormalizeConfig) (*normalize.Normalizer, error) {
	loc, err := config.Config{Normalize: cfg}.Location()
	if err != nil {
		return nil, err
	}
	return normalize.New(
		normalize.NewSkillNormalizer(cfg.SkillSynonyms),
		normalize.NewDateNormalizer(system.New(), loc, cfg.DateLayouts, cfg.DatePrefixes),
	), nil
}

func buildExporter(ctx context.Context, cfg config.ExportConfig) (crawler.Exporter, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	opts := export.Options{Prefix: cfg.Prefix, BOM: cfg.BOM}

	var (
		blobs   export.BlobStore
		cleanup = func() {}
	)
	switch cfg.Driver {
	case config.DriverLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local export store: %w", err)
		}
		blobs = store
	case config.DriverGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs export store: %w", err)
		}
		blobs = store
		cleanup = func() { _ = client.Close() }
	case config.DriverMemory:
		blobs = memory.NewBlobStore()
	default:
		return nil, nil, fmt.Errorf("unknown export driver %q", cfg.Driver)
	}
	return export.NewCSVExporter(blobs, system.New(), opts), cleanup, nil
}

func buildFetcher(cfg config.Config, logger *zap.Logger) *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		BaseURL:        cfg.Crawler.BaseURL,
		SearchPath:     cfg.Crawler.SearchPath,
		PageSize:       cfg.Crawler.PageSize,
		Sort:           cfg.Crawler.Sort,
		UserAgent:      cfg.Crawler.UserAgent,
		AcceptLanguage: cfg.Crawler.AcceptLanguage,
		Referer:        cfg.Crawler.Referer,
		RespectRobots:  cfg.Crawler.RespectRobots,
		Listing: collyfetcher.ModeConfig{
			Timeout:     cfg.Crawler.Timeout,
			MaxRetries:  cfg.Crawler.MaxRetries,
			BackoffBase: cfg.Crawler.BackoffBase,
		},
		Detail: collyfetcher.ModeConfig{
			Timeout:      cfg.Detail.Timeout,
			MaxRetries:   cfg.Detail.MaxRetries,
			BackoffBase:  cfg.Detail.BackoffBase,
			MaxBodyBytes: cfg.Detail.MaxBodyBytes,
		},
	}, logger)
}

// buildEngine wires the pipeline around an already opened store.
func buildEngine(
	cfg config.Config,
	store crawler.PostingStore,
	exporter crawler.Exporter,
	logger *zap.Logger,
) (*crawler.Engine, error) {
	extractor, err := extract.NewExtractor(cfg.Extract, cfg.Crawler.BaseURL, cfg.Detail.MaxSummaryRunes, logger)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	norm, err := buildNormalizer(cfg.Normalize)
	if err != nil {
		return nil, fmt.Errorf("init normalizer: %w", err)
	}
	return crawler.NewEngine(
		crawler.EngineConfig{
			MaxPages:     cfg.Crawler.MaxPages,
			MaxPostings:  cfg.Crawler.MaxPostings,
			PageDelay:    cfg.Crawler.PageDelay,
			FetchSummary: cfg.Detail.FetchSummary,
			SummaryDelay: cfg.Detail.Delay,
			Export:       exporter != nil,
		},
		buildFetcher(cfg, logger),
		extractor,
		identity.NewResolver(cfg.Identity.QueryParams, sha256.New()),
		norm,
		store,
		exporter,
		system.New(),
		uuid.New(),
		logger,
	), nil
}
