package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobposting-crawler/internal/metrics"
)

// ErrStorage wraps every persistence failure. The engine aborts the run on it.
var ErrStorage = errors.New("storage failure")

// EngineConfig controls pagination, caps and pacing.
type EngineConfig struct {
	// MaxPages is the page cap per keyword; 0 means no cap.
	MaxPages int
	// MaxPostings is the posting cap per keyword; 0 means no cap.
	MaxPostings int
	// PageDelay is the minimum gap between the end of one listing request
	// and the start of the next.
	PageDelay time.Duration
	// FetchSummary enables detail-page enrichment.
	FetchSummary bool
	// SummaryDelay is the same gap for detail requests.
	SummaryDelay time.Duration
	// Export hands each keyword batch to the exporter.
	Export bool
}

// Engine drives the ingestion pipeline for a list of keywords. One Engine is
// the single writer for a run.
type Engine struct {
	cfg        EngineConfig
	fetcher    Fetcher
	extractor  Extractor
	resolver   IdentityResolver
	normalizer Normalizer
	store      PostingStore
	exporter   Exporter
	clock      Clock
	ids        IDGenerator
	logger     *zap.Logger
}

// NewEngine constructs an Engine. exporter may be nil when export is off.
func NewEngine(
	cfg EngineConfig,
	fetcher Fetcher,
	extractor Extractor,
	resolver IdentityResolver,
	normalizer Normalizer,
	store PostingStore,
	exporter Exporter,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		fetcher:    fetcher,
		extractor:  extractor,
		resolver:   resolver,
		normalizer: normalizer,
		store:      store,
		exporter:   exporter,
		clock:      clock,
		ids:        ids,
		logger:     logger.Named("engine"),
	}
}

// Run crawls keywords in order. A storage error or cancellation stops the
// run and is returned with the stats gathered so far.
func (e *Engine) Run(ctx context.Context, keywords []string) (RunStats, error) {
	runID, err := e.ids.NewID()
	if err != nil {
		return RunStats{}, fmt.Errorf("generate run id: %w", err)
	}
	stats := RunStats{RunID: runID}
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("crawl run started", zap.Strings("keywords", keywords))

	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		res, err := e.crawlKeyword(ctx, logger, keyword)
		stats.Keywords++
		stats.Pages += res.Pages
		stats.Postings += len(res.Postings)
		stats.Affected += res.Affected
		stats.Dropped += res.Dropped
		if err != nil {
			logger.Error("crawl run aborted", zap.String("keyword", keyword), zap.Error(err))
			return stats, err
		}
	}

	logger.Info("crawl run finished",
		zap.Int("keywords", stats.Keywords),
		zap.Int("pages", stats.Pages),
		zap.Int("postings", stats.Postings),
		zap.Int64("affected", stats.Affected),
		zap.Int("dropped", stats.Dropped),
	)
	return stats, nil
}

// CrawlKeyword paginates one keyword until a stop condition and upserts each
// page as it goes.
func (e *Engine) CrawlKeyword(ctx context.Context, keyword string) (KeywordResult, error) {
	return e.crawlKeyword(ctx, e.logger, keyword)
}

func (e *Engine) crawlKeyword(ctx context.Context, logger *zap.Logger, keyword string) (KeywordResult, error) {
	logger = logger.With(zap.String("keyword", keyword))
	res := KeywordResult{Keyword: keyword}
	listing := newPoliteLimiter(e.cfg.PageDelay)
	detail := newPoliteLimiter(e.cfg.SummaryDelay)
	index := make(map[string]int)

	page := 1
	for ; e.cfg.MaxPages <= 0 || page <= e.cfg.MaxPages; page++ {
		wait, err := listing.Wait(ctx)
		if err != nil {
			return res, fmt.Errorf("crawl %q: %w", keyword, err)
		}
		metrics.ObservePolitenessWait("listing", wait)

		fetched, err := e.fetcher.FetchListing(ctx, keyword, page)
		listing.Done()
		if err != nil {
			return res, fmt.Errorf("crawl %q page %d: %w", keyword, page, err)
		}
		if fetched.Terminal {
			res.StopReason = fetched.Reason
			logger.Info("pagination stopped", zap.Int("page", page), zap.String("reason", string(fetched.Reason)))
			break
		}
		res.Pages++

		extracted := e.extractor.Extract(fetched)
		res.Dropped += extracted.Dropped
		metrics.ObserveDropped(extracted.Dropped)
		if len(extracted.Postings) == 0 {
			res.StopReason = StopNoPostings
			logger.Info("pagination stopped", zap.Int("page", page), zap.String("reason", string(StopNoPostings)))
			break
		}

		raws := extracted.Postings
		capped := false
		if e.cfg.MaxPostings > 0 {
			if room := e.cfg.MaxPostings - len(res.Postings); len(raws) >= room {
				raws = raws[:max(room, 0)]
				capped = true
			}
		}

		batch, dropped, err := e.buildBatch(ctx, detail, logger, raws)
		res.Dropped += dropped
		if err != nil {
			return res, fmt.Errorf("crawl %q page %d: %w", keyword, page, err)
		}

		affected, err := e.store.Upsert(ctx, batch)
		if err != nil {
			return res, fmt.Errorf("upsert %q page %d: %w: %w", keyword, page, ErrStorage, err)
		}
		res.Affected += affected
		metrics.ObserveUpsert(keyword, affected)
		for _, p := range batch {
			if i, ok := index[p.JobID]; ok {
				res.Postings[i] = p
				continue
			}
			index[p.JobID] = len(res.Postings)
			res.Postings = append(res.Postings, p)
		}
		logger.Debug("page stored",
			zap.Int("page", page),
			zap.Int("cards", extracted.Cards),
			zap.Int("postings", len(batch)),
			zap.Int64("affected", affected),
		)

		if capped {
			res.StopReason = StopPostingCap
			break
		}
	}
	if res.StopReason == TerminalNone && e.cfg.MaxPages > 0 && page > e.cfg.MaxPages {
		res.StopReason = StopPageCap
	}

	e.export(ctx, logger, &res)
	logger.Info("keyword finished",
		zap.Int("pages", res.Pages),
		zap.Int("postings", len(res.Postings)),
		zap.Int64("affected", res.Affected),
		zap.Int("dropped", res.Dropped),
		zap.String("stop_reason", string(res.StopReason)),
	)
	return res, nil
}

// buildBatch enriches and builds postings for one page, deduplicating by
// job_id with the last card winning.
func (e *Engine) buildBatch(
	ctx context.Context,
	detail *politeLimiter,
	logger *zap.Logger,
	raws []RawPosting,
) ([]Posting, int, error) {
	scrapedAt := e.clock.Now()
	batch := make([]Posting, 0, len(raws))
	index := make(map[string]int, len(raws))
	dropped := 0
	for _, raw := range raws {
		if e.cfg.FetchSummary && raw.URL != "" {
			summary, err := e.summary(ctx, detail, raw.URL)
			if err != nil {
				return nil, dropped, err
			}
			raw.Summary = summary
		}
		p, err := BuildPosting(raw, e.resolver, e.normalizer, scrapedAt)
		if err != nil {
			dropped++
			logger.Warn("posting rejected", zap.String("url", raw.URL), zap.Error(err))
			continue
		}
		if i, ok := index[p.JobID]; ok {
			batch[i] = p
			continue
		}
		index[p.JobID] = len(batch)
		batch = append(batch, p)
	}
	return batch, dropped, nil
}

// summary fetches a detail page; any failure other than cancellation leaves
// the summary empty.
func (e *Engine) summary(ctx context.Context, detail *politeLimiter, url string) (string, error) {
	wait, err := detail.Wait(ctx)
	if err != nil {
		return "", err
	}
	metrics.ObservePolitenessWait("detail", wait)
	page, err := e.fetcher.FetchDetail(ctx, url)
	detail.Done()
	if err != nil {
		return "", err
	}
	if page.Terminal {
		return "", nil
	}
	return e.extractor.Summary(page), nil
}

func (e *Engine) export(ctx context.Context, logger *zap.Logger, res *KeywordResult) {
	if !e.cfg.Export || e.exporter == nil || len(res.Postings) == 0 {
		return
	}
	path, err := e.exporter.Export(ctx, res.Keyword, res.Postings)
	if err != nil {
		metrics.ObserveExport("error")
		logger.Warn("export failed", zap.Error(err))
		return
	}
	metrics.ObserveExport("ok")
	res.ExportedPath = path
	logger.Info("exported snapshot", zap.String("path", path))
}
