package cosyncjwt

import (
	"errors"
	"net/url"
	"time"
)

// DefaultRestAddress is used when Configure receives an empty REST address.
const DefaultRestAddress = "https://rest.cosync.net"

// Config holds everything a Client needs at Build time.
//
// AppToken and RestAddress may be left empty and supplied later through
// Client.Configure.
type Config struct {
	AppToken    string
	RestAddress string
	HTTP        HTTPConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

// HTTPConfig tunes the default HTTP transport. It is ignored when a custom
// transport is supplied through Builder.WithTransport.
type HTTPConfig struct {
	Timeout        time.Duration
	UserAgent      string
	RequestLogging bool
}

// AuditConfig defines a public type used by cosyncjwt APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by cosyncjwt APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		RestAddress: DefaultRestAddress,
		HTTP: HTTPConfig{
			Timeout:        30 * time.Second,
			UserAgent:      "cosyncjwt-go",
			RequestLogging: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate checks the non-credential settings of c.
//
// An empty AppToken is accepted; app-token operations report ErrNotConfigured
// until Configure supplies one.
func (c *Config) Validate() error {
	if c.RestAddress != "" {
		u, err := url.Parse(c.RestAddress)
		if err != nil {
			return errors.New("RestAddress is not a valid URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("RestAddress must use http or https")
		}
		if u.Host == "" {
			return errors.New("RestAddress must include a host")
		}
	}

	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
