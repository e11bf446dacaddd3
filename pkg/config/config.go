// Package config loads service configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the MRR-per-vehicle engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// SharedSecret gates the HTTP API. Empty disables the check, which is
	// only sensible for local development.
	SharedSecret string `yaml:"-" env:"API_SHARED_SECRET"` // Secret - not in YAML

	// Warehouse holds revenue warehouse connection settings.
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// LLM holds chat model settings.
	LLM LLMConfig `yaml:"llm"`

	// PresetsPath points at the YAML file of metric presets. Empty uses
	// the built-in defaults.
	PresetsPath string `yaml:"presets_path" env:"PRESETS_PATH" env-default:""`

	// QueryTimeoutSeconds bounds a single warehouse query.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"30"`

	// RateLimit holds per-conversation rate limiting settings.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// WarehouseConfig holds revenue warehouse configuration. Driver selects the
// backend: "postgres" for a shared warehouse, "sqlite" for a local file.
type WarehouseConfig struct {
	Driver         string `yaml:"driver" env:"WAREHOUSE_DRIVER" env-default:"postgres"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"fleetlens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"revenue"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`

	// SQLitePath is the database file when Driver is "sqlite".
	SQLitePath string `yaml:"sqlite_path" env:"WAREHOUSE_SQLITE_PATH" env-default:"revenue.db"`
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	// Provider selects the client: "openai" or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
}

// RateLimitConfig holds per-conversation rate limiting settings.
// A zero TurnsPerMinute disables limiting.
type RateLimitConfig struct {
	TurnsPerMinute int `yaml:"turns_per_minute" env:"RATE_LIMIT_TURNS_PER_MINUTE" env-default:"20"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Warehouse.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown warehouse driver %q (want postgres or sqlite)", c.Warehouse.Driver)
	}
	if c.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("query_timeout_seconds must be positive, got %d", c.QueryTimeoutSeconds)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *WarehouseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
