// ABOUTME: Configuration loading and parsing for taskchat
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backend names accepted in store.backend.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendBolt   = "bolt"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// Config represents the complete taskchat configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig describes the chat backend endpoint
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// StoreConfig selects and configures the conversation id store
type StoreConfig struct {
	Backend   string `yaml:"backend"` // sqlite, bolt, redis, memory
	Path      string `yaml:"path"`    // for sqlite and bolt
	RedisURL  string `yaml:"redis_url"`
	Namespace string `yaml:"namespace"`
}

// SessionConfig holds per-session defaults
type SessionConfig struct {
	// UserScope identifies whose conversation id is persisted.
	// Defaults to $USER when empty.
	UserScope string `yaml:"user_scope"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}

	switch c.Store.Backend {
	case "", StoreBackendSQLite, StoreBackendBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.storeBackendName())
		}
	case StoreBackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	case StoreBackendMemory:
		// Nothing to configure
	default:
		return fmt.Errorf("store.backend must be one of sqlite, bolt, redis, memory (got %q)", c.Store.Backend)
	}

	return nil
}

func (c *Config) storeBackendName() string {
	if c.Store.Backend == "" {
		return StoreBackendSQLite
	}
	return c.Store.Backend
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.TimeoutRaw != "" {
		cfg.Backend.Timeout, err = time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing backend timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}

	return nil
}
