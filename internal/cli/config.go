package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cosync/cosyncjwt"
)

// Environment variables read over the config file.
const (
	EnvAppToken    = "COSYNCJWT_APP_TOKEN"
	EnvRestAddress = "COSYNCJWT_REST_ADDRESS"
	EnvLogLevel    = "COSYNCJWT_LOG_LEVEL"
)

// FileConfig is the YAML configuration file.
type FileConfig struct {
	AppToken    string        `yaml:"app_token"`
	RestAddress string        `yaml:"rest_address"`
	LogLevel    string        `yaml:"log_level"`
	Timeout     time.Duration `yaml:"timeout"`
	Audit       bool          `yaml:"audit"`
}

func defaultFileConfig() FileConfig {
	d := cosyncjwt.DefaultConfig()
	return FileConfig{
		RestAddress: d.RestAddress,
		LogLevel:    "warn",
		Timeout:     d.HTTP.Timeout,
	}
}

// LoadFile reads path over the defaults. A missing path is an error; an empty
// path returns the defaults.
func LoadFile(path string) (FileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read %s: %v", errConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", errConfig, path, err)
	}
	return cfg, nil
}

// applyEnv overlays non-empty environment values.
func (c *FileConfig) applyEnv(getenv func(string) string) {
	if v := getenv(EnvAppToken); v != "" {
		c.AppToken = v
	}
	if v := getenv(EnvRestAddress); v != "" {
		c.RestAddress = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// clientConfig converts c into a validated library Config.
func (c FileConfig) clientConfig() (cosyncjwt.Config, error) {
	if c.AppToken == "" {
		return cosyncjwt.Config{}, fmt.Errorf("%w: app token is required (--app-token, %s or app_token in the config file)", errConfig, EnvAppToken)
	}

	cfg := cosyncjwt.DefaultConfig()
	cfg.AppToken = c.AppToken
	cfg.RestAddress = c.RestAddress
	cfg.HTTP.Timeout = c.Timeout
	cfg.Audit.Enabled = c.Audit

	if err := cfg.Validate(); err != nil {
		return cosyncjwt.Config{}, fmt.Errorf("%w: %v", errConfig, err)
	}
	return cfg, nil
}
