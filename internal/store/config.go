package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TICKER"

type Config struct {
	Venue struct {
		RestURL     string        `yaml:"rest_url" envconfig:"REST_URL"`
		StreamURL   string        `yaml:"stream_url" envconfig:"STREAM_URL"`
		Category    string        `yaml:"category" envconfig:"CATEGORY"`
		HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`
	} `yaml:"venue" envconfig:"VENUE"`
	Collector struct {
		BatchSize        int           `yaml:"batch_size" envconfig:"BATCH_SIZE"`
		StartInterval    time.Duration `yaml:"start_interval" envconfig:"START_INTERVAL"`
		QuoteSuffix      string        `yaml:"quote_suffix" envconfig:"QUOTE_SUFFIX"`
		PingInterval     time.Duration `yaml:"ping_interval" envconfig:"PING_INTERVAL"`
		ProgressInterval time.Duration `yaml:"progress_interval" envconfig:"PROGRESS_INTERVAL"`
	} `yaml:"collector" envconfig:"COLLECTOR"`
	Telegram struct {
		TokenFile   string        `yaml:"token_file" envconfig:"TOKEN_FILE"`
		APIURL      string        `yaml:"api_url" envconfig:"API_URL"`
		PollTimeout time.Duration `yaml:"poll_timeout" envconfig:"POLL_TIMEOUT"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Audit struct {
		Dir           string `yaml:"dir" envconfig:"DIR"`
		RetentionDays int    `yaml:"retention_days" envconfig:"RETENTION_DAYS"`
	} `yaml:"audit" envconfig:"AUDIT"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Venue.RestURL == "" {
		c.Venue.RestURL = "https://api.bybit.com"
	}
	if c.Venue.StreamURL == "" {
		c.Venue.StreamURL = "wss://stream.bybit.com/v5/public/spot"
	}
	if c.Venue.Category == "" {
		c.Venue.Category = "spot"
	}
	if c.Venue.HTTPTimeout == 0 {
		c.Venue.HTTPTimeout = 30 * time.Second
	}
	if c.Collector.BatchSize == 0 {
		c.Collector.BatchSize = 10
	}
	if c.Collector.StartInterval == 0 {
		c.Collector.StartInterval = 200 * time.Millisecond
	}
	if c.Collector.QuoteSuffix == "" {
		c.Collector.QuoteSuffix = "USDT"
	}
	if c.Collector.PingInterval == 0 {
		c.Collector.PingInterval = 20 * time.Second
	}
	if c.Collector.ProgressInterval == 0 {
		c.Collector.ProgressInterval = 2 * time.Second
	}
	if c.Telegram.TokenFile == "" {
		c.Telegram.TokenFile = "teleg.txt"
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60 * time.Second
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = "logs"
	}
}

func (c *Config) Validate() error {
	if c.Collector.BatchSize < 1 {
		return fmt.Errorf("collector.batch_size must be >= 1, got %d", c.Collector.BatchSize)
	}
	if c.Collector.StartInterval < 0 {
		return fmt.Errorf("collector.start_interval must not be negative, got %s", c.Collector.StartInterval)
	}
	if c.Collector.PingInterval < 0 {
		return fmt.Errorf("collector.ping_interval must not be negative, got %s", c.Collector.PingInterval)
	}
	if c.Collector.ProgressInterval <= 0 {
		return fmt.Errorf("collector.progress_interval must be positive, got %s", c.Collector.ProgressInterval)
	}
	if strings.TrimSpace(c.Collector.QuoteSuffix) == "" {
		return errors.New("collector.quote_suffix cannot be empty")
	}
	if err := checkURL("venue.rest_url", c.Venue.RestURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("venue.stream_url", c.Venue.StreamURL, "ws", "wss"); err != nil {
		return err
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days must not be negative, got %d", c.Audit.RetentionDays)
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of %v, got %q", key, schemes, raw)
}

// LoadConfig reads the YAML file at path, fills defaults, then applies
// TICKER_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var c Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	c.applyDefaults()

	if err := envconfig.Process(envPrefix, &c); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
