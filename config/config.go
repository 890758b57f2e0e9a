package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	Scraper   ScraperConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Stores    []StoreConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig holds the match scoring thresholds
type MatchingConfig struct {
	HighThreshold   float64 `mapstructure:"high_threshold"`
	MediumThreshold float64 `mapstructure:"medium_threshold"`
	MinCoverage     float64 `mapstructure:"min_coverage"`
}

// CacheConfig holds search result cache configuration
type CacheConfig struct {
	Type    string `mapstructure:"type"` // "memory" or "sqlite"
	Path    string `mapstructure:"path"`
	TTLDays int    `mapstructure:"ttl_days"`
}

// TTL returns the cache time-to-live as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// ScraperConfig holds store scraper configuration
type ScraperConfig struct {
	DelaySeconds   float64 `mapstructure:"delay_seconds"`
	MaxResults     int     `mapstructure:"max_results"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Delay returns the minimum spacing between scrapes of one store.
func (c ScraperConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// Timeout returns the deadline for a single store search.
func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// StoreConfig describes one configured store. Adding or removing a store
// is a configuration change, not a code change.
type StoreConfig struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	BaseURL    string `mapstructure:"base_url"`
	CookieFile string `mapstructure:"cookie_file"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pelles/")

	// Environment variable settings
	v.SetEnvPrefix("PELLES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	// Matching defaults
	v.SetDefault("matching.high_threshold", 0.85)
	v.SetDefault("matching.medium_threshold", 0.60)
	v.SetDefault("matching.min_coverage", 0.70)

	// Cache defaults
	v.SetDefault("cache.type", "sqlite")
	v.SetDefault("cache.path", "./pelles.db")
	v.SetDefault("cache.ttl_days", 7)

	// Scraper defaults
	v.SetDefault("scraper.delay_seconds", 1.5)
	v.SetDefault("scraper.max_results", 10)
	v.SetDefault("scraper.timeout_seconds", 30)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/pelles.log")

	// Store registry defaults
	v.SetDefault("stores", []map[string]interface{}{
		{"id": "shufersal", "name": "Shufersal"},
		{"id": "super_hefer", "name": "Super Hefer Large"},
	})
}

// validate validates the configuration
func validate(config *Config) error {
	m := config.Matching
	if m.HighThreshold <= 0 || m.HighThreshold > 1 {
		return fmt.Errorf("matching.high_threshold must be in (0, 1], got: %v", m.HighThreshold)
	}
	if m.MediumThreshold <= 0 || m.MediumThreshold > 1 {
		return fmt.Errorf("matching.medium_threshold must be in (0, 1], got: %v", m.MediumThreshold)
	}
	if m.MediumThreshold > m.HighThreshold {
		return fmt.Errorf("matching.medium_threshold (%v) must not exceed matching.high_threshold (%v)",
			m.MediumThreshold, m.HighThreshold)
	}
	if m.MinCoverage <= 0 || m.MinCoverage > 1 {
		return fmt.Errorf("matching.min_coverage must be in (0, 1], got: %v", m.MinCoverage)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "sqlite" {
		return fmt.Errorf("cache type must be 'memory' or 'sqlite', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "sqlite" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'sqlite'")
	}
	if config.Cache.TTLDays <= 0 {
		return fmt.Errorf("cache.ttl_days must be positive, got: %d", config.Cache.TTLDays)
	}

	if len(config.Stores) == 0 {
		return fmt.Errorf("at least one store must be configured")
	}
	seen := make(map[string]bool)
	for _, store := range config.Stores {
		if store.ID == "" {
			return fmt.Errorf("store id must not be empty")
		}
		if seen[store.ID] {
			return fmt.Errorf("duplicate store id: %s", store.ID)
		}
		seen[store.ID] = true
	}

	return nil
}
