package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultMaxEntries  = 1000
	DefaultHTTPTimeout = 30 * time.Second
)

type Config struct {
	App   AppConfig   `yaml:"app"`
	Cache CacheConfig `yaml:"cache"`
	HTTP  HTTPConfig  `yaml:"http"`
}

// AppConfig identifies the GitHub App.
type AppConfig struct {
	// AppID is the GitHub App ID.
	AppID int64 `yaml:"app_id"`

	// PrivateKey is the GitHub App private key in PEM format.
	// You have to specify ONE OF PrivateKey OR PrivateKeyFile.
	PrivateKey string `yaml:"private_key"`

	// PrivateKeyFile is a path to the GitHub App private key in PEM format.
	PrivateKeyFile string `yaml:"private_key_path"`

	// ServerURL is the GitHub Enterprise server URL.
	// For GitHub.com, this can be left empty.
	ServerURL string `yaml:"server"`

	// GraphQLURL overrides the GraphQL endpoint derived from ServerURL.
	GraphQLURL string `yaml:"graphql_url"`
}

func (c *AppConfig) Validate() error {
	if c.AppID <= 0 {
		return fmt.Errorf("app_id is required")
	}
	switch {
	case c.PrivateKey != "" && c.PrivateKeyFile != "":
		return fmt.Errorf("only one of private_key and private_key_path may be set")
	case c.PrivateKey == "" && c.PrivateKeyFile == "":
		return fmt.Errorf("private_key or private_key_path is required")
	}
	return nil
}

// KeyBytes returns the PEM encoded private key, reading it from disk if configured as a path.
func (c *AppConfig) KeyBytes() ([]byte, error) {
	if c.PrivateKey != "" {
		return []byte(c.PrivateKey), nil
	}
	contents, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}
	return contents, nil
}

// CacheConfig holds configuration for the installation token cache.
type CacheConfig struct {
	// MaxEntries bounds how many installation tokens are kept in memory.
	MaxEntries int `yaml:"max_entries"`

	// RedisURL enables a shared token store (e.g. redis://localhost:6379/0).
	RedisURL string `yaml:"redis_url"`
}

type HTTPConfig struct {
	// Timeout applies to every request sent to GitHub.
	Timeout time.Duration `yaml:"timeout"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct with defaults applied or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = DefaultMaxEntries
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
}

func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("validating app: %w", err)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("validating cache: max_entries must not be negative")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("validating http: timeout must not be negative")
	}
	return nil
}
