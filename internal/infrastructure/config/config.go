package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the namespace server configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Auth      AuthConfig
	Namespace NamespaceConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// StoreConfig selects where saved mounts persist.
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"memory"`
	DSN    string `envconfig:"STORE_DSN"`
}

// AuthConfig enables bearer authentication when either field is set.
type AuthConfig struct {
	Secret  string   `envconfig:"AUTH_SECRET"`
	APIKeys []string `envconfig:"AUTH_API_KEYS"`
}

// Enabled reports whether requests must carry credentials
func (a AuthConfig) Enabled() bool {
	return a.Secret != "" || len(a.APIKeys) > 0
}

// NamespaceConfig holds namespace bootstrap settings.
type NamespaceConfig struct {
	MountsFile      string `envconfig:"MOUNTS_FILE"`
	RootBackendPath string `envconfig:"ROOT_BACKEND_PATH"`
}

// CORSConfig holds allowed origins.
type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "duckdb":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("STORE_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8000", Host: "0.0.0.0"},
		Logging:   LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200, Enabled: true},
		Store:     StoreConfig{Driver: "memory"},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
}

// ClientConfig holds namespace client configuration.
type ClientConfig struct {
	URL        string        `envconfig:"NS_URL" default:"http://localhost:8000"`
	APIKey     string        `envconfig:"NS_API_KEY"`
	Timeout    time.Duration `envconfig:"NS_TIMEOUT" default:"30s"`
	RateLimit  float64       `envconfig:"NS_RATE_LIMIT" default:"0"`
	ServerMove bool          `envconfig:"NS_SERVER_MOVE" default:"false"`
	LogLevel   string        `envconfig:"NS_LOG_LEVEL" default:"warn"`
}

// LoadClient loads client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load client config: %w", err)
	}
	return &cfg, nil
}

// DefaultClient returns default client configuration.
func DefaultClient() *ClientConfig {
	return &ClientConfig{
		URL:      "http://localhost:8000",
		Timeout:  30 * time.Second,
		LogLevel: "warn",
	}
}
