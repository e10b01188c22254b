// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/jobposting-crawler/internal/extract"
)

// EnvPrefix namespaces every environment override, e.g. JOBCRAWLER_STORE_DSN.
const EnvPrefix = "JOBCRAWLER"

// Store and export drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverLocal    = "local"
	DriverGCS      = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Detail    DetailConfig    `mapstructure:"detail"`
	Extract   extract.Rules   `mapstructure:"extract"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Store     StoreConfig     `mapstructure:"store"`
	Export    ExportConfig    `mapstructure:"export"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// CrawlerConfig governs listing pagination and request behavior.
type CrawlerConfig struct {
	Keywords       []string      `mapstructure:"keywords"`
	BaseURL        string        `mapstructure:"base_url"`
	SearchPath     string        `mapstructure:"search_path"`
	PageSize       int           `mapstructure:"page_size"`
	Sort           string        `mapstructure:"sort"`
	MaxPages       int           `mapstructure:"max_pages"`
	MaxPostings    int           `mapstructure:"max_postings"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	Referer        string        `mapstructure:"referer"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
}

// DetailConfig controls the optional detail-page summary pass.
type DetailConfig struct {
	FetchSummary    bool          `mapstructure:"fetch_summary"`
	Delay           time.Duration `mapstructure:"delay"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	MaxBodyBytes    int           `mapstructure:"max_body_bytes"`
	MaxSummaryRunes int           `mapstructure:"max_summary_runes"`
}

// IdentityConfig lists the query parameters that carry a posting id.
type IdentityConfig struct {
	QueryParams []string `mapstructure:"query_params"`
}

// NormalizeConfig holds the skill and date normalization data.
type NormalizeConfig struct {
	Timezone      string            `mapstructure:"timezone"`
	SkillSynonyms map[string]string `mapstructure:"skill_synonyms"`
	DateLayouts   []string          `mapstructure:"date_layouts"`
	DatePrefixes  []string          `mapstructure:"date_prefixes"`
}

// StoreConfig selects and tunes the posting store.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// ExportConfig controls CSV snapshots.
type ExportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	BOM     bool   `mapstructure:"bom"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig sets the optional /metrics listener; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"keyword":       "crawler.keywords",
	"pages":         "crawler.max_pages",
	"max-postings":  "crawler.max_postings",
	"delay":         "crawler.page_delay",
	"fetch-summary": "detail.fetch_summary",
	"summary-delay": "detail.delay",
	"dsn":           "store.dsn",
	"store":         "store.driver",
	"export-csv":    "export.enabled",
	"export-dir":    "export.dir",
	"log-level":     "logging.level",
	"metrics-addr":  "metrics.addr",
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from defaults, the optional file at path, the
// environment and any flags set on flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Extract = cfg.Extract.WithDefaults()
	cfg.Crawler.Keywords = cleanKeywords(cfg.Crawler.Keywords)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.keywords", []string{})
	v.SetDefault("crawler.base_url", "https://www.saramin.co.kr")
	v.SetDefault("crawler.search_path", "/zf_user/search/recruit")
	v.SetDefault("crawler.page_size", 40)
	v.SetDefault("crawler.sort", "relation")
	v.SetDefault("crawler.max_pages", 1)
	v.SetDefault("crawler.max_postings", 300)
	v.SetDefault("crawler.page_delay", "2s")
	v.SetDefault("crawler.max_retries", 2)
	v.SetDefault("crawler.backoff_base", "1s")
	v.SetDefault("crawler.timeout", "15s")
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("crawler.accept_language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	v.SetDefault("crawler.referer", "https://www.saramin.co.kr/")
	v.SetDefault("crawler.respect_robots", false)

	v.SetDefault("detail.fetch_summary", false)
	v.SetDefault("detail.delay", "1s")
	v.SetDefault("detail.timeout", "10s")
	v.SetDefault("detail.max_retries", 1)
	v.SetDefault("detail.backoff_base", "1s")
	v.SetDefault("detail.max_body_bytes", 2*1024*1024)
	v.SetDefault("detail.max_summary_runes", 1000)

	v.SetDefault("identity.query_params", []string{"rec_idx", "idx"})

	v.SetDefault("normalize.timezone", "Asia/Seoul")

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.table", "job_postings")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("store.max_conn_lifetime", "30m")

	v.SetDefault("export.enabled", false)
	v.SetDefault("export.driver", DriverLocal)
	v.SetDefault("export.dir", "data")
	v.SetDefault("export.bucket", "")
	v.SetDefault("export.prefix", "")
	v.SetDefault("export.bom", true)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if c.Crawler.PageSize <= 0 {
		return fmt.Errorf("crawler.page_size must be > 0")
	}
	if c.Crawler.MaxPages < 0 || c.Crawler.MaxPostings < 0 {
		return fmt.Errorf("crawler.max_pages and crawler.max_postings must be >= 0")
	}
	if c.Crawler.MaxRetries < 0 || c.Detail.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	if c.Crawler.PageDelay <= 0 || c.Detail.Delay <= 0 {
		return fmt.Errorf("crawler.page_delay and detail.delay must be > 0")
	}
	if c.Crawler.Timeout <= 0 || c.Detail.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout and detail.timeout must be > 0")
	}
	if _, err := time.LoadLocation(c.Normalize.Timezone); err != nil {
		return fmt.Errorf("normalize.timezone: %w", err)
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver %q is not one of postgres, memory", c.Store.Driver)
	}
	if c.Export.Enabled {
		switch c.Export.Driver {
		case DriverLocal:
			if c.Export.Dir == "" {
				return fmt.Errorf("export.dir must be set for the local driver")
			}
		case DriverGCS:
			if c.Export.Bucket == "" {
				return fmt.Errorf("export.bucket must be set for the gcs driver")
			}
		case DriverMemory:
		default:
			return fmt.Errorf("export.driver %q is not one of local, gcs, memory", c.Export.Driver)
		}
	}
	return nil
}

// Location resolves normalize.timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Normalize.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Normalize.Timezone, err)
	}
	return loc, nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
