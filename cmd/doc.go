// Package cmd defines and implements the CLI commands for the jobcrawler executable.
//
// Architecture overview:
//   - crawl: for each keyword the crawler.Engine asks the Colly fetcher for listing pages 1..N, paced by a
//     rate limiter. Pagination stops on a terminal fetch (404, empty body, non-retryable status, retries
//     exhausted), on a page without postings, or at the page/posting caps.
//   - Extraction: goquery walks each card with configurable fallback selector chains. Cards without a title or
//     company are dropped and counted; missing optional fields become the "unknown" sentinel.
//   - Identity & normalization: job_id comes from the rec_idx/idx query parameter, a numeric trailing path
//     segment, or a SHA-256 digest of title, company and URL. Skills are canonicalized through a synonym table
//     and dates resolved to YYYY-MM-DD against an injectable clock in the configured timezone.
//   - Persistence: each page is upserted in one Postgres transaction keyed by job_id (the memory driver serves
//     dry runs). A storage error aborts the run with a non-zero exit.
//   - Export: with --export-csv each keyword batch is written as a CSV snapshot to the local filesystem or GCS.
//     Export failures are logged and counted, never fatal.
//
// Operational notes:
//   - Concurrency model: one engine, keywords processed sequentially; every request has a timeout and a bounded
//     retry budget with linear backoff. SIGINT/SIGTERM cancel the run; rerunning is safe because upserts are
//     idempotent.
//   - Observability: zap logs carry run_id and keyword; Prometheus counters/histograms track fetches, retries,
//     dropped cards, upserts and exports, served on /metrics when --metrics-addr is set.
//
// Quick checklist:
//   - Configure env vars: JOBCRAWLER_STORE_DSN, JOBCRAWLER_CRAWLER_PAGE_DELAY, JOBCRAWLER_DETAIL_FETCH_SUMMARY,
//     JOBCRAWLER_EXPORT_ENABLED and friends, or put them in .env.
//   - Run locally: go run . crawl --keyword python --pages 2 --store memory
//   - Migrate older rows after changing synonyms or date rules: jobcrawler normalize
package cmd
