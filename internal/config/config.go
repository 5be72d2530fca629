// SPDX-License-Identifier: MIT

// Package config loads and validates application configuration.
// Precedence: environment variables > config file > built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// APIConfig holds settings for the remote watch-schedule API.
type APIConfig struct {
	Base     string `yaml:"base"`
	Key      string `yaml:"key"`
	Features string `yaml:"features"`
	Region   string `yaml:"region"`
	TZ       string `yaml:"tz"`
	Device   string `yaml:"device"`
	Package  string `yaml:"package"`
}

// Config is the complete application configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
	Listen  string `yaml:"listen"`

	APIToken       string `yaml:"api_token"`
	AllowAnonymous bool   `yaml:"allow_anonymous"`
	TrustedProxies string `yaml:"trusted_proxies"`

	Brand        string `yaml:"brand"`
	DeeplinkBase string `yaml:"deeplink_base"`

	API APIConfig `yaml:"api"`

	FetchDays       int           `yaml:"fetch_days"`
	FetchInterval   time.Duration `yaml:"fetch_interval"`
	CompileInterval time.Duration `yaml:"compile_interval"`

	Lookahead     time.Duration `yaml:"lookahead"`
	Grace         time.Duration `yaml:"grace"`
	StandbyBlock  time.Duration `yaml:"standby_block"`
	MaxStandby    time.Duration `yaml:"max_standby"`
	EndedDuration time.Duration `yaml:"ended_duration"`
	Retention     time.Duration `yaml:"retention"`

	LogLevel     string  `yaml:"log_level"`
	OTelEnabled  bool    `yaml:"otel_enabled"`
	OTelEndpoint string  `yaml:"otel_endpoint"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		DataDir:         "./out",
		Listen:          ":8080",
		Brand:           "EPlusTV",
		DeeplinkBase:    "app-action://x-callback-url/showWatchStream",
		API: APIConfig{
			Base:     "https://watch.graph.api.espn.com/api",
			Features: "pbov7",
			Region:   "US",
			TZ:       "UTC",
			Device:   "DESKTOP",
			Package:  "ESPN_PLUS",
		},
		FetchDays:       4,
		FetchInterval:   time.Hour,
		CompileInterval: 5 * time.Minute,
		Lookahead:       6 * time.Hour,
		Grace:           65 * time.Minute,
		StandbyBlock:    30 * time.Minute,
		MaxStandby:      6 * time.Hour,
		EndedDuration:   30 * time.Minute,
		Retention:       168 * time.Hour,
		RateLimitRPS:    2,
	}
}

// Load builds the effective configuration: defaults, overlaid by the optional
// YAML config file at path, overlaid by EPLUSTV_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "schedule.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays EPLUSTV_* environment variables onto the current values,
// so the current value acts as the default for each key.
func (c *Config) applyEnv() {
	c.DataDir = ParseString("EPLUSTV_DATA", c.DataDir)
	c.DBPath = ParseString("EPLUSTV_DB", c.DBPath)
	c.Listen = ParseString("EPLUSTV_LISTEN", c.Listen)

	c.APIToken = ParseString("EPLUSTV_API_TOKEN", c.APIToken)
	c.AllowAnonymous = ParseBool("EPLUSTV_AUTH_ANONYMOUS", c.AllowAnonymous)
	c.TrustedProxies = ParseString("EPLUSTV_TRUSTED_PROXIES", c.TrustedProxies)

	c.Brand = ParseString("EPLUSTV_BRAND", c.Brand)
	c.DeeplinkBase = ParseString("EPLUSTV_DEEPLINK_BASE", c.DeeplinkBase)

	c.API.Base = ParseString("EPLUSTV_API_BASE", c.API.Base)
	c.API.Key = ParseString("EPLUSTV_API_KEY", c.API.Key)
	c.API.Features = ParseString("EPLUSTV_API_FEATURES", c.API.Features)
	c.API.Region = ParseString("EPLUSTV_API_REGION", c.API.Region)
	c.API.TZ = ParseString("EPLUSTV_API_TZ", c.API.TZ)
	c.API.Device = ParseString("EPLUSTV_API_DEVICE", c.API.Device)
	c.API.Package = ParseString("EPLUSTV_API_PACKAGE", c.API.Package)

	c.FetchDays = ParseInt("EPLUSTV_FETCH_DAYS", c.FetchDays)
	c.FetchInterval = ParseDuration("EPLUSTV_FETCH_INTERVAL", c.FetchInterval)
	c.CompileInterval = ParseDuration("EPLUSTV_COMPILE_INTERVAL", c.CompileInterval)

	c.Lookahead = ParseDuration("EPLUSTV_LOOKAHEAD", c.Lookahead)
	c.Grace = ParseDuration("EPLUSTV_GRACE", c.Grace)
	c.StandbyBlock = ParseDuration("EPLUSTV_STANDBY_BLOCK", c.StandbyBlock)
	c.MaxStandby = ParseDuration("EPLUSTV_MAX_STANDBY", c.MaxStandby)
	c.EndedDuration = ParseDuration("EPLUSTV_ENDED_DURATION", c.EndedDuration)
	c.Retention = ParseDuration("EPLUSTV_RETENTION", c.Retention)

	c.LogLevel = ParseString("EPLUSTV_LOG_LEVEL", c.LogLevel)
	c.OTelEnabled = ParseBool("EPLUSTV_OTEL_ENABLED", c.OTelEnabled)
	c.OTelEndpoint = ParseString("EPLUSTV_OTEL_ENDPOINT", c.OTelEndpoint)
	c.RateLimitRPS = ParseFloat("EPLUSTV_RATE_LIMIT_RPS", c.RateLimitRPS)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory is empty")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.FetchDays < 1 {
		return fmt.Errorf("fetch days must be >= 1 (got %d)", c.FetchDays)
	}
	if c.StandbyBlock <= 0 {
		return fmt.Errorf("standby block must be positive (got %s)", c.StandbyBlock)
	}
	if c.MaxStandby < c.StandbyBlock {
		return fmt.Errorf("max standby %s is smaller than standby block %s", c.MaxStandby, c.StandbyBlock)
	}
	if c.EndedDuration <= 0 {
		return fmt.Errorf("ended duration must be positive (got %s)", c.EndedDuration)
	}
	if c.Lookahead <= 0 || c.Grace <= 0 {
		return fmt.Errorf("lookahead and grace must be positive (got %s, %s)", c.Lookahead, c.Grace)
	}
	if c.API.Base != "" {
		u, err := url.Parse(c.API.Base)
		if err != nil {
			return fmt.Errorf("invalid API base URL %q: %w", c.API.Base, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("unsupported API base URL scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("API base URL %q is missing host", c.API.Base)
		}
	}
	if c.DeeplinkBase == "" {
		return fmt.Errorf("deeplink base is empty")
	}
	return nil
}
