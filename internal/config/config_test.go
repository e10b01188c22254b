package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobposting-crawler/internal/extract"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "store:\n  dsn: postgres://localhost/jobs\n")
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Crawler.PageSize)
	assert.Equal(t, "relation", cfg.Crawler.Sort)
	assert.Equal(t, 300, cfg.Crawler.MaxPostings)
	assert.Equal(t, 2*time.Second, cfg.Crawler.PageDelay)
	assert.Equal(t, 1000, cfg.Detail.MaxSummaryRunes)
	assert.Equal(t, []string{"rec_idx", "idx"}, cfg.Identity.QueryParams)
	assert.Equal(t, "Asia/Seoul", cfg.Normalize.Timezone)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "job_postings", cfg.Store.Table)
	assert.True(t, cfg.Export.BOM)
	assert.Equal(t, extract.DefaultRules(), cfg.Extract)
	assert.Empty(t, cfg.Crawler.Keywords)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
crawler:
  keywords: ["python", " data engineer ", ""]
  max_pages: 5
  page_delay: 500ms
  user_agent: test-agent
detail:
  fetch_summary: true
  max_summary_runes: 200
extract:
  cards: [".card"]
normalize:
  timezone: UTC
  skill_synonyms:
    golang: go
store:
  driver: memory
export:
  enabled: true
  driver: gcs
  bucket: snapshots
  prefix: exports
logging:
  development: true
  level: debug
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"python", "data engineer"}, cfg.Crawler.Keywords)
	assert.Equal(t, 5, cfg.Crawler.MaxPages)
	assert.Equal(t, 500*time.Millisecond, cfg.Crawler.PageDelay)
	assert.Equal(t, "test-agent", cfg.Crawler.UserAgent)
	assert.True(t, cfg.Detail.FetchSummary)
	assert.Equal(t, 200, cfg.Detail.MaxSummaryRunes)
	assert.Equal(t, []string{".card"}, cfg.Extract.Cards)
	assert.Equal(t, extract.DefaultRules().Title, cfg.Extract.Title, "unset chains fall back to defaults")
	assert.Equal(t, map[string]string{"golang": "go"}, cfg.Normalize.SkillSynonyms)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "snapshots", cfg.Export.Bucket)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "crawler:\n  max_pages: 5\nstore:\n  driver: memory\n")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringArray("keyword", nil, "")
	flags.Int("pages", 1, "")
	flags.Duration("delay", 2*time.Second, "")
	flags.Bool("fetch-summary", false, "")
	flags.Bool("export-csv", false, "")
	require.NoError(t, flags.Parse([]string{
		"--keyword", "golang",
		"--keyword", "rust",
		"--pages", "3",
		"--delay", "250ms",
		"--fetch-summary",
	}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust"}, cfg.Crawler.Keywords)
	assert.Equal(t, 3, cfg.Crawler.MaxPages)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawler.PageDelay)
	assert.True(t, cfg.Detail.FetchSummary)
	assert.False(t, cfg.Export.Enabled, "unset flag keeps the configured value")
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")
	t.Setenv("JOBCRAWLER_CRAWLER_MAX_POSTINGS", "50")
	t.Setenv("JOBCRAWLER_STORE_TABLE", "postings_v2")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Crawler.MaxPostings)
	assert.Equal(t, "postings_v2", cfg.Store.Table)
}

func TestLoadRejectsZeroDelay(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "page delay", env: "JOBCRAWLER_CRAWLER_PAGE_DELAY"},
		{name: "detail delay", env: "JOBCRAWLER_DETAIL_DELAY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "store:\n  driver: memory\n")
			t.Setenv(tc.env, "0s")

			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be > 0")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Crawler: CrawlerConfig{
				BaseURL:   "https://example.com",
				PageSize:  40,
				PageDelay: 2 * time.Second,
				Timeout:   time.Second,
			},
			Detail:    DetailConfig{Delay: time.Second, Timeout: time.Second},
			Normalize: NormalizeConfig{Timezone: "UTC"},
			Store:     StoreConfig{Driver: DriverMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Crawler.BaseURL = "" }, wantErr: "crawler.base_url"},
		{name: "zero page size", mutate: func(c *Config) { c.Crawler.PageSize = 0 }, wantErr: "crawler.page_size"},
		{name: "negative retries", mutate: func(c *Config) { c.Detail.MaxRetries = -1 }, wantErr: "max_retries"},
		{name: "negative delay", mutate: func(c *Config) { c.Crawler.PageDelay = -time.Second }, wantErr: "crawler.page_delay"},
		{name: "zero page delay", mutate: func(c *Config) { c.Crawler.PageDelay = 0 }, wantErr: "crawler.page_delay"},
		{name: "zero detail delay", mutate: func(c *Config) { c.Detail.Delay = 0 }, wantErr: "detail.delay"},
		{name: "zero timeout", mutate: func(c *Config) { c.Detail.Timeout = 0 }, wantErr: "timeout"},
		{name: "bad timezone", mutate: func(c *Config) { c.Normalize.Timezone = "Mars/Olympus" }, wantErr: "normalize.timezone"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = DriverPostgres }, wantErr: "store.dsn"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, wantErr: "store.driver"},
		{
			name: "gcs export without bucket",
			mutate: func(c *Config) {
				c.Export = ExportConfig{Enabled: true, Driver: DriverGCS}
			},
			wantErr: "export.bucket",
		},
		{
			name: "disabled export is not checked",
			mutate: func(c *Config) {
				c.Export = ExportConfig{Driver: "ftp"}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JOBCRAWLER_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("JOBCRAWLER_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("JOBCRAWLER_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("JOBCRAWLER_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}
