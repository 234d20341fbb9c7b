package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the movers scraper.
type Config struct {
	Sources []Source `yaml:"sources"`
	Fetch   Fetch    `yaml:"fetch"`
	Render  Render   `yaml:"render"`
	Parse   Parse    `yaml:"parse"`
	Watch   Watch    `yaml:"watch"`
	Storage Storage  `yaml:"storage"`
	Server  Server   `yaml:"server"`
	Alpaca  Alpaca   `yaml:"alpaca"`
	Logging Logging  `yaml:"logging"`
}

// Source is one screener page to scrape.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Referer string `yaml:"referer"`
}

// Fetch controls plain page retrieval.
type Fetch struct {
	UserAgent       string `yaml:"user_agent"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CookieURL       string `yaml:"cookie_url"` // primed once per session
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	Retries         int    `yaml:"retries"`
}

// Timeout returns the per-request timeout.
func (f Fetch) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Render controls headless-browser rendering of fetched pages.
type Render struct {
	Enabled               bool    `yaml:"enabled"`
	ChromePath            string  `yaml:"chrome_path"`
	Attempts              int     `yaml:"attempts"`
	InitialTimeoutSeconds float64 `yaml:"initial_timeout_seconds"`
	Factor                float64 `yaml:"factor"`
}

// InitialTimeout returns the first render attempt's timeout.
func (r Render) InitialTimeout() time.Duration {
	return time.Duration(r.InitialTimeoutSeconds * float64(time.Second))
}

// Parse configures table location.
type Parse struct {
	TableSelector string `yaml:"table_selector"`
}

// Watch controls the polling loop.
type Watch struct {
	IntervalSeconds int  `yaml:"interval_seconds"`
	Cycles          int  `yaml:"cycles"` // 0 runs until cancelled
	MarketHoursOnly bool `yaml:"market_hours_only"`
}

// Interval returns the delay between polling cycles.
func (w Watch) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds listener addresses. GRPCAddr enables the gRPC health
// service when set.
type Server struct {
	Addr     string `yaml:"addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// Alpaca holds market-data credentials for the quote cross-check. The
// cross-check is skipped when APIKey is empty.
type Alpaca struct {
	APIKey       string  `yaml:"api_key"`
	APISecret    string  `yaml:"api_secret"`
	DataURL      string  `yaml:"data_url"`
	Feed         string  `yaml:"feed"`
	TolerancePct float64 `yaml:"tolerance_pct"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// DefaultSources are the day gainers and day losers screeners.
var DefaultSources = []Source{
	{
		Name:    "gainers",
		URL:     "https://finance.yahoo.com/gainers",
		Referer: "https://finance.yahoo.com/markets/",
	},
	{
		Name:    "losers",
		URL:     "https://finance.yahoo.com/screener/predefined/day_losers",
		Referer: "https://finance.yahoo.com/",
	},
}

// Default returns a configuration that works without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero-valued fields.
func applyDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = append([]Source(nil), DefaultSources...)
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = defaultUserAgent
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 10
	}
	if cfg.Fetch.CookieURL == "" {
		cfg.Fetch.CookieURL = "https://finance.yahoo.com/markets/stocks/most-active/"
	}
	if cfg.Fetch.Retries <= 0 {
		cfg.Fetch.Retries = 3
	}
	if cfg.Render.Attempts <= 0 {
		cfg.Render.Attempts = 3
	}
	if cfg.Render.InitialTimeoutSeconds <= 0 {
		cfg.Render.InitialTimeoutSeconds = 20
	}
	if cfg.Render.Factor <= 1 {
		cfg.Render.Factor = 1.5
	}
	if cfg.Watch.IntervalSeconds <= 0 {
		cfg.Watch.IntervalSeconds = 60
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.Alpaca.TolerancePct <= 0 {
		cfg.Alpaca.TolerancePct = 2
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, fills defaults, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty, otherwise it returns the
// defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg, cfg.Validate()
}

// Validate checks that every source has a unique name and a URL.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("source %d: name and url are required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q defined twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Source returns the source with the given name.
func (c *Config) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// SourceNames returns the configured source names in order.
func (c *Config) SourceNames() []string {
	names := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		names[i] = s.Name
	}
	return names
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MOVERS_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.Server.GRPCAddr = v
	}

	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Render.ChromePath = v
	}
	if v := os.Getenv("MOVERS_RENDER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Render.Enabled = b
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
