// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/artpar/checked/core/options"
)

// Config is the root configuration structure.
type Config struct {
	Checking   CheckingConfig   `yaml:"checking"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Signatures SignaturesConfig `yaml:"signatures"`
}

// CheckingConfig holds the options every validator reads on each call.
// Coerce and Active default to true, so unset is kept apart from false.
type CheckingConfig struct {
	Coerce *bool `yaml:"coerce"`
	Active *bool `yaml:"active"`
	Debug  bool  `yaml:"debug"`

	// Extra options are stored as given; checking ignores names it does
	// not know.
	Extra map[string]any `yaml:"extra,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Expose check outcome counters
	Addr    string `yaml:"addr"`    // Listen address for the metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
	Prefix  string `yaml:"prefix"`  // Metric name prefix (default: checked)
}

// SignaturesConfig locates signature declaration files.
type SignaturesConfig struct {
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files,omitempty"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CHECKED_COERCE            - Convert non-conforming arguments (default: true)
//	CHECKED_ACTIVE            - Check arguments at all (default: true)
//	CHECKED_DEBUG             - Log construction failures (default: false)
//	CHECKED_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	CHECKED_LOG_FORMAT        - Log format: json or console (default: console)
//	CHECKED_METRICS_ENABLED   - Expose metrics (default: false)
//	CHECKED_METRICS_ADDR      - Metrics listen address (default: :9090)
//	CHECKED_METRICS_PATH      - Metrics path (default: /metrics)
//	CHECKED_METRICS_PREFIX    - Metric name prefix (default: checked)
//	CHECKED_SIGNATURES_DIR    - Signature declaration directory
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from path when the file exists and from the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// LoadEnvFile reads KEY=VALUE pairs from a .env file into the process
// environment. Variables already set are not overridden. A missing file is
// not an error when optional is set.
func LoadEnvFile(path string, optional bool) error {
	if _, err := os.Stat(path); err != nil && optional {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies CHECKED_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Checking options
	if v := os.Getenv("CHECKED_COERCE"); v != "" {
		b := parseBool(v)
		cfg.Checking.Coerce = &b
	}
	if v := os.Getenv("CHECKED_ACTIVE"); v != "" {
		b := parseBool(v)
		cfg.Checking.Active = &b
	}
	if v := os.Getenv("CHECKED_DEBUG"); v != "" {
		cfg.Checking.Debug = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("CHECKED_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHECKED_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CHECKED_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CHECKED_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("CHECKED_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
	if v := os.Getenv("CHECKED_METRICS_PREFIX"); v != "" {
		cfg.Metrics.Prefix = v
	}

	// Signatures
	if v := os.Getenv("CHECKED_SIGNATURES_DIR"); v != "" {
		cfg.Signatures.Dir = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Checking.Coerce == nil {
		t := true
		cfg.Checking.Coerce = &t
	}
	if cfg.Checking.Active == nil {
		t := true
		cfg.Checking.Active = &t
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Prefix == "" {
		cfg.Metrics.Prefix = "checked"
	}
}

var metricPrefix = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}
	if !metricPrefix.MatchString(cfg.Metrics.Prefix) {
		return fmt.Errorf("metrics.prefix %q is not a valid metric name", cfg.Metrics.Prefix)
	}

	for name := range cfg.Checking.Extra {
		if options.Recognized(name) {
			return fmt.Errorf("checking.extra.%s: set %s directly under checking", name, name)
		}
	}

	return nil
}

// Options returns the checking section as option name/value pairs.
func (c CheckingConfig) Options() map[string]any {
	out := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}
	out[options.Debug] = c.Debug
	if c.Coerce != nil {
		out[options.Coerce] = *c.Coerce
	}
	if c.Active != nil {
		out[options.Active] = *c.Active
	}
	return out
}

// Apply writes the checking section into store.
func (c *Config) Apply(store *options.Store) error {
	for name, v := range c.Checking.Options() {
		if err := store.Set(name, v); err != nil {
			return fmt.Errorf("apply checking options: %w", err)
		}
	}
	return nil
}
