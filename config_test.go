package cosyncjwt

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RestAddress != DefaultRestAddress {
		t.Fatalf("expected default rest address, got %q", cfg.RestAddress)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", cfg.HTTP.Timeout)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"relative url":       func(c *Config) { c.RestAddress = "rest.cosync.net" },
		"ftp scheme":         func(c *Config) { c.RestAddress = "ftp://rest.cosync.net" },
		"missing host":       func(c *Config) { c.RestAddress = "https://" },
		"negative timeout":   func(c *Config) { c.HTTP.Timeout = -time.Second },
		"audit zero buffer":  func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
		"latency no metrics": func(c *Config) { c.Metrics.EnableLatencyHistograms = true },
	}

	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestConfigValidateAcceptsEmptyCredentials(t *testing.T) {
	cfg := defaultConfig()
	cfg.AppToken = ""
	cfg.RestAddress = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty credentials should be accepted: %v", err)
	}
}
