package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Collector.BatchSize != 10 {
		t.Errorf("Expected batch size 10, got %d", cfg.Collector.BatchSize)
	}
	if cfg.Collector.StartInterval != 200*time.Millisecond {
		t.Errorf("Expected start interval 200ms, got %v", cfg.Collector.StartInterval)
	}
	if cfg.Collector.QuoteSuffix != "USDT" {
		t.Errorf("Expected USDT suffix, got %s", cfg.Collector.QuoteSuffix)
	}
	if cfg.Venue.Category != "spot" {
		t.Errorf("Expected spot category, got %s", cfg.Venue.Category)
	}
	if cfg.Telegram.TokenFile != "teleg.txt" {
		t.Errorf("Expected teleg.txt, got %s", cfg.Telegram.TokenFile)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	p := writeConfig(t, `
venue:
  category: linear
  stream_url: wss://stream.bybit.com/v5/public/linear
collector:
  batch_size: 25
  start_interval: 500ms
`)

	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Venue.Category != "linear" {
		t.Errorf("Expected linear, got %s", cfg.Venue.Category)
	}
	if cfg.Collector.BatchSize != 25 {
		t.Errorf("Expected 25, got %d", cfg.Collector.BatchSize)
	}
	if cfg.Collector.StartInterval != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", cfg.Collector.StartInterval)
	}
	if cfg.Venue.RestURL != "https://api.bybit.com" {
		t.Errorf("Expected default rest url, got %s", cfg.Venue.RestURL)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	p := writeConfig(t, "collector:\n  batch_size: 25\n")
	t.Setenv("TICKER_COLLECTOR_BATCH_SIZE", "5")
	t.Setenv("TICKER_AUDIT_DIR", "/tmp/audit")

	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Collector.BatchSize != 5 {
		t.Errorf("Expected env override 5, got %d", cfg.Collector.BatchSize)
	}
	if cfg.Audit.Dir != "/tmp/audit" {
		t.Errorf("Expected /tmp/audit, got %s", cfg.Audit.Dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"negative batch size", func(c *Config) { c.Collector.BatchSize = -1 }, "batch_size"},
		{"negative start interval", func(c *Config) { c.Collector.StartInterval = -time.Second }, "start_interval"},
		{"http stream url", func(c *Config) { c.Venue.StreamURL = "http://example.com" }, "stream_url"},
		{"ws rest url", func(c *Config) { c.Venue.RestURL = "ws://example.com" }, "rest_url"},
		{"blank suffix", func(c *Config) { c.Collector.QuoteSuffix = " " }, "quote_suffix"},
		{"negative retention", func(c *Config) { c.Audit.RetentionDays = -2 }, "retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	p := writeConfig(t, "collector: [not, a, map")
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("Expected parse error")
	}
}
