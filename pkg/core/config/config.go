// Package config loads the runtime configuration from a YAML file with
// environment overrides. Tolerances and the canonical vocabulary are not
// configuration; this covers the operational knobs only (provider
// endpoint, worker width, cache, output).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// EnvConfigPath points at an alternative config file.
const EnvConfigPath = "FINSTAT_CONFIG"

// Provider configures the statements API client.
type Provider struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	RateLimit      int    `yaml:"rate_limit" validate:"gte=1,lte=100"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1,lte=300"`
}

// Timeout returns the request timeout as a duration.
func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Cache configures the fetched-statement cache.
type Cache struct {
	Dir      string `yaml:"dir"`
	TTLHours int    `yaml:"ttl_hours" validate:"gte=0"`
}

// TTL returns the cache lifetime; zero disables expiry.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Config is the full runtime configuration.
type Config struct {
	Provider     Provider `yaml:"provider"`
	Workers      int      `yaml:"workers" validate:"gte=1,lte=64"`
	Cache        Cache    `yaml:"cache"`
	DirectoryCSV string   `yaml:"directory_csv"`
	OutputDir    string   `yaml:"output_dir"`
	VocabOverlay string   `yaml:"vocab_overlay"`
	LogLevel     string   `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Provider: Provider{
			BaseURL:        "https://api.fundata.io",
			RateLimit:      5,
			TimeoutSeconds: 30,
		},
		Workers: 4,
		Cache: Cache{
			Dir:      ".cache/statements",
			TTLHours: 24,
		},
		DirectoryCSV: "data/company_sector_map.csv",
		OutputDir:    "output",
		LogLevel:     "info",
	}
}

// Load reads the configuration. Resolution order: the explicit path, the
// FINSTAT_CONFIG env var, ./config.yaml, built-in defaults. A missing file
// is only an error when it was named explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults stand in.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
