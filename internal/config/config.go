// ABOUTME: Configuration loading and parsing for the watson-bot server.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete watson-bot configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Messenger  MessengerConfig  `yaml:"messenger"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Insights   InsightsConfig   `yaml:"insights"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	TurnTimeout time.Duration `yaml:"-"`
	SendTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TurnTimeoutRaw string `yaml:"turn_timeout"`
	SendTimeoutRaw string `yaml:"send_timeout"`
}

// MessengerConfig holds Messenger platform credentials.
type MessengerConfig struct {
	SendURL     string `yaml:"send_url"`
	AccessToken string `yaml:"access_token"`
	VerifyToken string `yaml:"verify_token"`
}

// DialogConfig holds dialog engine service credentials.
type DialogConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DialogID string `yaml:"dialog_id"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// ClassifierConfig holds classifier service credentials.
type ClassifierConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// InsightsConfig holds the insights search endpoint.
type InsightsConfig struct {
	URL string `yaml:"url"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// LedgerConfig holds the turn transcript configuration.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills values that are safe to assume.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.TurnTimeout == 0 {
		c.Server.TurnTimeout = 30 * time.Second
	}
	if c.Server.SendTimeout == 0 {
		c.Server.SendTimeout = 10 * time.Second
	}
	if c.Dialog.Timeout == 0 {
		c.Dialog.Timeout = 10 * time.Second
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 10 * time.Second
	}
	if c.Insights.Timeout == 0 {
		c.Insights.Timeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Messenger.SendURL == "" {
		c.Messenger.SendURL = "https://graph.facebook.com/v2.6/me/messages"
	}
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Messenger.AccessToken == "" {
		return fmt.Errorf("messenger.access_token is required")
	}
	if c.Messenger.VerifyToken == "" {
		return fmt.Errorf("messenger.verify_token is required")
	}
	if c.Dialog.URL == "" {
		return fmt.Errorf("dialog.url is required")
	}
	if c.Dialog.DialogID == "" {
		return fmt.Errorf("dialog.dialog_id is required")
	}
	if c.Classifier.URL == "" {
		return fmt.Errorf("classifier.url is required")
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required when ledger is enabled")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.Server.TurnTimeoutRaw, "turn_timeout", &cfg.Server.TurnTimeout},
		{cfg.Server.SendTimeoutRaw, "send_timeout", &cfg.Server.SendTimeout},
		{cfg.Dialog.TimeoutRaw, "dialog.timeout", &cfg.Dialog.Timeout},
		{cfg.Classifier.TimeoutRaw, "classifier.timeout", &cfg.Classifier.Timeout},
		{cfg.Insights.TimeoutRaw, "insights.timeout", &cfg.Insights.Timeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
