// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FOODSAVER_SERVER_METRICS_PORT
const EnvPrefix = "FOODSAVER"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" split_words:"true"`
	Log     LogConfig     `yaml:"log" split_words:"true"`
	Store   StoreConfig   `yaml:"store" split_words:"true"`
	LLM     LLMConfig     `yaml:"llm" split_words:"true"`
	Auth    AuthConfig    `yaml:"auth" split_words:"true"`
	Tracker TrackerConfig `yaml:"tracker" split_words:"true"`
}

type ServerConfig struct {
	Port        int    `yaml:"port" split_words:"true"`
	MetricsPort int    `yaml:"metrics_port" split_words:"true"`
	Mode        string `yaml:"mode" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" split_words:"true"`
	Path    string `yaml:"path" split_words:"true"`
	Dialect string `yaml:"dialect" split_words:"true"`
	DSN     string `yaml:"dsn" split_words:"true"`
}

type LLMConfig struct {
	Provider      string        `yaml:"provider" split_words:"true"`
	Model         string        `yaml:"model" split_words:"true"`
	APIKey        string        `yaml:"api_key" split_words:"true"`
	BaseURL       string        `yaml:"base_url" split_words:"true"`
	Timeout       time.Duration `yaml:"timeout" split_words:"true"`
	MaxImageBytes int64         `yaml:"max_image_bytes" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" split_words:"true"`
}

type TrackerConfig struct {
	StrictWasteAmount bool   `yaml:"strict_waste_amount" split_words:"true"`
	Timezone          string `yaml:"timezone" split_words:"true"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			MetricsPort: 9090,
			Mode:        "release",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Backend: "bolt",
			Path:    "data/foodsaver.db",
			Dialect: "sqlite3",
		},
		LLM: LLMConfig{
			Provider:      "openai",
			Timeout:       60 * time.Second,
			MaxImageBytes: 10 << 20,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// FOODSAVER_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "bolt", "badger", "memory":
	case "sql":
		if c.Store.Dialect != "sqlite3" && c.Store.Dialect != "postgres" {
			return fmt.Errorf("unsupported store dialect %q", c.Store.Dialect)
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode %q", c.Server.Mode)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}

	switch c.LLM.Provider {
	case "openai", "github_models", "ollama", "azure_openai", "none":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}

	if c.Server.Port <= 0 || c.Server.MetricsPort < 0 {
		return fmt.Errorf("invalid server ports %d/%d", c.Server.Port, c.Server.MetricsPort)
	}
	if _, err := c.Tracker.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone; empty means the local zone
func (t TrackerConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid tracker timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}
