// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
	"github.com/JakeFAU/jobposting-crawler/internal/metrics"
)

// Fetch kinds, used as metric and log labels.
const (
	KindListing = "listing"
	KindDetail  = "detail"
)

// ModeConfig holds the per-kind request budget.
type ModeConfig struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	// MaxBodyBytes caps the captured body; 0 keeps colly's default.
	MaxBodyBytes int
}

// Config controls collector behavior.
type Config struct {
	BaseURL    string
	SearchPath string
	PageSize   int
	Sort       string
	// ExtraParams are appended to every listing query.
	ExtraParams map[string]string

	UserAgent      string
	AcceptLanguage string
	Referer        string
	RespectRobots  bool

	Listing ModeConfig
	Detail  ModeConfig
}

// DefaultExtraParams are the fixed listing query parameters.
var DefaultExtraParams = map[string]string{
	"search_done": "y",
	"search_area": "main",
	"searchType":  "search",
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// attemptResult is what one collector visit observed.
type attemptResult struct {
	status      int
	contentType string
	headers     http.Header
	body        []byte
	url         string
	err         error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.ExtraParams == nil {
		cfg.ExtraParams = DefaultExtraParams
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger.Named("fetcher"),
	}
}

// ListingURL builds the search URL for keyword and 1-based page.
func (f *Fetcher) ListingURL(keyword string, page int) (string, error) {
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath(f.cfg.SearchPath)

	q := url.Values{}
	for k, v := range f.cfg.ExtraParams {
		q.Set(k, v)
	}
	q.Set("searchword", keyword)
	q.Set("recruitPage", strconv.Itoa(page))
	if f.cfg.Sort != "" {
		q.Set("recruitSort", f.cfg.Sort)
	}
	if f.cfg.PageSize > 0 {
		q.Set("recruitPageCount", strconv.Itoa(f.cfg.PageSize))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchListing retrieves one listing page.
func (f *Fetcher) FetchListing(ctx context.Context, keyword string, page int) (crawler.Page, error) {
	target, err := f.ListingURL(keyword, page)
	if err != nil {
		return crawler.TerminalPage("", 0, crawler.TerminalStatus, 0), nil
	}
	return f.fetch(ctx, KindListing, target, f.cfg.Listing)
}

// FetchDetail retrieves a posting's detail page under the detail budget.
func (f *Fetcher) FetchDetail(ctx context.Context, target string) (crawler.Page, error) {
	return f.fetch(ctx, KindDetail, target, f.cfg.Detail)
}

// fetch runs the retry loop. Only ctx cancellation escapes as an error.
func (f *Fetcher) fetch(ctx context.Context, kind, target string, mode ModeConfig) (crawler.Page, error) {
	policy := crawler.NewLinearRetryPolicy(mode.MaxRetries, mode.BackoffBase)
	start := time.Now()
	logger := f.logger.With(zap.String("kind", kind), zap.String("url", target))

	for attempt := 1; ; attempt++ {
		res := f.attempt(ctx, target, mode)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return crawler.Page{}, fmt.Errorf("fetch %s canceled: %w", kind, ctxErr)
		}

		if res.err == nil && res.status >= 200 && res.status < 300 {
			if len(bytes.TrimSpace(res.body)) == 0 {
				return f.terminal(kind, target, res.status, crawler.TerminalEmpty, attempt, start), nil
			}
			metrics.ObserveFetch(kind, "ok", attempt-1, time.Since(start))
			return crawler.Page{
				URL:         res.url,
				StatusCode:  res.status,
				ContentType: res.contentType,
				Headers:     res.headers,
				Body:        res.body,
				Attempts:    attempt,
				Duration:    time.Since(start),
			}, nil
		}
		if res.err == nil && res.status == http.StatusNotFound {
			return f.terminal(kind, target, res.status, crawler.TerminalNotFound, attempt, start), nil
		}

		if policy.ShouldRetry(res.status, res.err, attempt) {
			wait := policy.Backoff(attempt)
			logger.Warn("fetch attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("status", res.status),
				zap.Duration("backoff", wait),
				zap.Error(res.err),
			)
			if err := crawler.Pause(ctx, wait); err != nil {
				return crawler.Page{}, fmt.Errorf("fetch %s canceled: %w", kind, err)
			}
			continue
		}

		if crawler.Transient(res.status, res.err) {
			logger.Warn("fetch retries exhausted", zap.Int("attempts", attempt), zap.Int("status", res.status), zap.Error(res.err))
			return f.terminal(kind, target, res.status, crawler.TerminalRetriesExhausted, attempt, start), nil
		}
		logger.Warn("fetch ended on unexpected status", zap.Int("status", res.status), zap.Error(res.err))
		return f.terminal(kind, target, res.status, crawler.TerminalStatus, attempt, start), nil
	}
}

func (f *Fetcher) terminal(kind, target string, status int, reason crawler.TerminalReason, attempts int, start time.Time) crawler.Page {
	metrics.ObserveFetch(kind, string(reason), attempts-1, time.Since(start))
	page := crawler.TerminalPage(target, status, reason, attempts)
	page.Duration = time.Since(start)
	return page
}

func (f *Fetcher) attempt(ctx context.Context, target string, mode ModeConfig) attemptResult {
	var res attemptResult
	collector := f.buildCollector(ctx, mode)
	f.configureCollectorHooks(collector, &res)
	if err := f.runCollector(ctx, collector, target); err != nil {
		if ctx.Err() != nil {
			// The visit may still be writing into res.
			return attemptResult{err: err}
		}
		if res.err == nil {
			res.err = err
		}
	}
	return res
}

func (f *Fetcher) buildCollector(ctx context.Context, mode ModeConfig) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	if mode.MaxBodyBytes > 0 {
		collector.MaxBodySize = mode.MaxBodyBytes
	}
	timeout := mode.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, res *attemptResult) {
	hooks.OnRequest(func(r *colly.Request) {
		f.setHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.body = append([]byte(nil), r.Body...)
		if r.Headers != nil {
			res.headers = r.Headers.Clone()
			res.contentType = r.Headers.Get("Content-Type")
		}
		if r.Request != nil && r.Request.URL != nil {
			res.url = r.Request.URL.String()
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.status = r.StatusCode
		}
		res.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func (f *Fetcher) setHeaders(r *colly.Request) {
	if f.cfg.AcceptLanguage != "" {
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	}
	if f.cfg.Referer != "" {
		r.Headers.Set("Referer", f.cfg.Referer)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
