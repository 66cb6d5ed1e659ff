// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Search   SearchConfig   `mapstructure:"search"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig controls the listing API.
type ServerConfig struct {
	Port      int `mapstructure:"port"`
	ListLimit int `mapstructure:"list_limit"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SearchConfig drives link discovery against the search API.
type SearchConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Region         string        `mapstructure:"region"`
	ResultsPerPage int           `mapstructure:"results_per_page"`
	Pages          int           `mapstructure:"pages"`
	Delay          time.Duration `mapstructure:"delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Queries        []string      `mapstructure:"queries"`
	Keywords       []string      `mapstructure:"keywords"`
	BlockedHosts   []string      `mapstructure:"blocked_hosts"`
}

// CrawlerConfig governs the fetch, extract, and persist pipeline.
type CrawlerConfig struct {
	Concurrency            int           `mapstructure:"concurrency"`
	LinkTimeout            time.Duration `mapstructure:"link_timeout"`
	MinTextChars           int           `mapstructure:"min_text_chars"`
	AggregatorLinks        int           `mapstructure:"aggregator_links"`
	AggregatorTrustCeiling int           `mapstructure:"aggregator_trust_ceiling"`
	SettleDelay            time.Duration `mapstructure:"settle_delay"`
	InstitutionalSelectors string        `mapstructure:"institutional_selectors"`
	UserAgents             []string      `mapstructure:"user_agents"`
}

// RendererConfig selects and tunes the page renderer.
type RendererConfig struct {
	Engine     string        `mapstructure:"engine"`
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Provider    string         `mapstructure:"provider"`
	AutoMigrate bool           `mapstructure:"auto_migrate"`
	Table       string         `mapstructure:"table"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	SQLite      SQLiteConfig   `mapstructure:"sqlite"`
}

// PostgresConfig controls the pgx connection pool.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SQLiteConfig points at the local database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// Renderer engines.
const (
	EngineChromedp = "chromedp"
	EngineColly    = "colly"
)

// Storage providers.
const (
	ProviderPostgres = "postgres"
	ProviderSQLite   = "sqlite"
	ProviderMemory   = "memory"
)

// DefaultQueries are the discovery templates used when none are configured.
var DefaultQueries = []string{
	"site:gov.in tech fellowship 2026 application",
	"site:edu.in software engineering internship summer 2026",
	"MeitY digital india internship 2026 registration",
	"ISRO IIRS internship for students 2026",
	"IIT research internship 2026 computer science",
	"software developer internship india 2026 apply",
	"AI ML fellowship for indian students 2026",
	"Google India STEP internship 2026 deadline",
	"Microsoft India university internship 2026",
	"Qualcomm India technical internship 2026",
}

// DefaultUserAgents is the rotation pool for page fetches.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Firefox/110.0",
}

// Load builds a Config from .env, disk, and environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("FELLOWSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.list_limit", 100)
	v.SetDefault("logging.development", true)
	v.SetDefault("search.endpoint", "https://google.serper.dev/search")
	v.SetDefault("search.region", "in")
	v.SetDefault("search.results_per_page", 50)
	v.SetDefault("search.pages", 3)
	v.SetDefault("search.delay", "500ms")
	v.SetDefault("search.timeout", "20s")
	v.SetDefault("search.queries", DefaultQueries)
	v.SetDefault("search.keywords", []string{"intern", "fellow", "scholar", "trainee", "opportunity"})
	v.SetDefault("search.blocked_hosts", []string{
		"instagram.com", "facebook.com", "linkedin.com", "youtube.com",
		"twitter.com", "x.com", "quora.com", "reddit.com",
	})
	v.SetDefault("crawler.concurrency", 3)
	v.SetDefault("crawler.link_timeout", "60s")
	v.SetDefault("crawler.min_text_chars", 300)
	v.SetDefault("crawler.aggregator_links", 80)
	v.SetDefault("crawler.aggregator_trust_ceiling", 80)
	v.SetDefault("crawler.settle_delay", "2s")
	v.SetDefault("crawler.institutional_selectors", "main, article, table, #content, .content, .notice")
	v.SetDefault("crawler.user_agents", DefaultUserAgents)
	v.SetDefault("renderer.engine", EngineChromedp)
	v.SetDefault("renderer.nav_timeout", "35s")
	v.SetDefault("storage.provider", ProviderPostgres)
	v.SetDefault("storage.auto_migrate", false)
	v.SetDefault("storage.table", "fellowships")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.sqlite.path", "data/fellowships.db")
}

// bindAliases accepts the unprefixed variable names used by deployment tooling.
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"search.api_key":       {"FELLOWSHIP_SEARCH_API_KEY", "SERPER_API_KEY"},
		"storage.postgres.dsn": {"FELLOWSHIP_STORAGE_POSTGRES_DSN", "DATABASE_URL"},
		"server.port":          {"FELLOWSHIP_SERVER_PORT", "PORT"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ListLimit <= 0 {
		return fmt.Errorf("server.list_limit must be > 0")
	}
	if c.Search.Pages <= 0 {
		return fmt.Errorf("search.pages must be > 0")
	}
	if c.Search.ResultsPerPage <= 0 {
		return fmt.Errorf("search.results_per_page must be > 0")
	}
	if c.Search.Delay < 0 {
		return fmt.Errorf("search.delay must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.LinkTimeout <= 0 {
		return fmt.Errorf("crawler.link_timeout must be > 0")
	}
	if len(c.Crawler.UserAgents) == 0 {
		return fmt.Errorf("crawler.user_agents must not be empty")
	}
	switch c.Renderer.Engine {
	case EngineChromedp, EngineColly:
	default:
		return fmt.Errorf("renderer.engine must be %q or %q, got %q", EngineChromedp, EngineColly, c.Renderer.Engine)
	}
	switch c.Storage.Provider {
	case ProviderPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn must be set when storage.provider is postgres")
		}
	case ProviderSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path must be set when storage.provider is sqlite")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	return nil
}

// SearchReady reports whether discovery can reach the search API.
func (c Config) SearchReady() error {
	if c.Search.APIKey == "" {
		return fmt.Errorf("search.api_key (or SERPER_API_KEY) must be set to run discovery")
	}
	if len(c.Search.Queries) == 0 {
		return fmt.Errorf("search.queries must not be empty")
	}
	return nil
}
