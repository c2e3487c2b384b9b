// Package config provides unified configuration loading for the invoice
// extractor. Supports YAML files, environment variables, and programmatic
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the invoice extractor.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Session       SessionConfig       `yaml:"session"`
	Orders        OrdersConfig        `yaml:"orders"`
	History       HistoryConfig       `yaml:"history"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// SessionConfig holds settings for the upstream claude.ai web session.
type SessionConfig struct {
	BaseURL    string `yaml:"base_url"`
	CookieFile string `yaml:"cookie_file"`

	// OwnTaxID is the operator's own RUC. The parser discards it when the
	// model misreports it as the supplier's tax id.
	OwnTaxID string `yaml:"own_tax_id"`

	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone"`

	// MetadataTimeout bounds the short calls (org listing, conversation
	// create/delete). StreamTimeout bounds the completion stream, where model
	// generation latency dominates.
	MetadataTimeout time.Duration `yaml:"metadata_timeout"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
	StreamTimeout   time.Duration `yaml:"stream_timeout"`

	// SettleDelay and RetryBackoff are empirically chosen: the upstream
	// rejects a completion issued immediately against a brand-new
	// conversation, and back-to-back retries fail more often than spaced
	// ones. Kept configurable, no stricter semantics implied.
	SettleDelay  time.Duration `yaml:"settle_delay"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// OrdersConfig holds the shared directory processed by name.
type OrdersConfig struct {
	Dir string `yaml:"dir"`
}

// HistoryConfig holds the extraction-history store settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the observed upstream constants
// and sensible server defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8001,
			ReadTimeout: 60 * time.Second,
			// Must exceed the stream timeout or responses get cut mid-wait.
			WriteTimeout:     180 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Session: SessionConfig{
			BaseURL:         "https://claude.ai",
			CookieFile:      "claude_cookies_selenium.json",
			OwnTaxID:        "20100064571",
			Locale:          "es-419",
			Timezone:        "America/Lima",
			MetadataTimeout: 10 * time.Second,
			UploadTimeout:   30 * time.Second,
			StreamTimeout:   120 * time.Second,
			SettleDelay:     1 * time.Second,
			RetryBackoff:    3 * time.Second,
			MaxAttempts:     5,
		},
		Orders: OrdersConfig{
			Dir: "/mnt/publicar_web/ordenes_servicio",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "/tmp/invoice-extractor.db",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Session.BaseURL == "" {
		return fmt.Errorf("session base_url cannot be empty")
	}

	if c.Session.CookieFile == "" {
		return fmt.Errorf("session cookie_file cannot be empty")
	}

	if c.Session.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.Session.MaxAttempts)
	}

	if c.Session.StreamTimeout <= 0 {
		return fmt.Errorf("stream_timeout must be positive")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("CLAUDE_BASE_URL"); v != "" {
		cfg.Session.BaseURL = v
	}

	if v := os.Getenv("COOKIE_FILE"); v != "" {
		cfg.Session.CookieFile = v
	}

	if v := os.Getenv("OWN_TAX_ID"); v != "" {
		cfg.Session.OwnTaxID = v
	}

	if v := os.Getenv("ORDERS_DIR"); v != "" {
		cfg.Orders.Dir = v
	}

	if v := os.Getenv("HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	if v := os.Getenv("HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
