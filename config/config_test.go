package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)

	assert.Equal(t, 0.85, cfg.Matching.HighThreshold)
	assert.Equal(t, 0.60, cfg.Matching.MediumThreshold)
	assert.Equal(t, 0.70, cfg.Matching.MinCoverage)

	assert.Equal(t, "sqlite", cfg.Cache.Type)
	assert.Equal(t, "./pelles.db", cfg.Cache.Path)
	assert.Equal(t, 7, cfg.Cache.TTLDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL())

	assert.Equal(t, 1.5, cfg.Scraper.DelaySeconds)
	assert.Equal(t, 10, cfg.Scraper.MaxResults)
	assert.Equal(t, 30, cfg.Scraper.TimeoutSeconds)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scraper.Delay())
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout())

	assert.Equal(t, 100, cfg.RateLimit.PerIP)

	require.Len(t, cfg.Stores, 2)
	assert.Equal(t, "shufersal", cfg.Stores[0].ID)
	assert.Equal(t, "super_hefer", cfg.Stores[1].ID)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PELLES_SERVER_PORT", "9000")
	t.Setenv("PELLES_CACHE_TYPE", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Type)
}

func validConfig() Config {
	return Config{
		Matching: MatchingConfig{HighThreshold: 0.85, MediumThreshold: 0.60, MinCoverage: 0.70},
		Cache:    CacheConfig{Type: "memory", TTLDays: 7},
		Stores: []StoreConfig{
			{ID: "shufersal", Name: "Shufersal"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "high threshold out of range",
			mutate:  func(c *Config) { c.Matching.HighThreshold = 1.5 },
			wantErr: "high_threshold",
		},
		{
			name:    "medium threshold zero",
			mutate:  func(c *Config) { c.Matching.MediumThreshold = 0 },
			wantErr: "medium_threshold",
		},
		{
			name:    "medium above high",
			mutate:  func(c *Config) { c.Matching.MediumThreshold = 0.9 },
			wantErr: "must not exceed",
		},
		{
			name:    "min coverage out of range",
			mutate:  func(c *Config) { c.Matching.MinCoverage = -0.1 },
			wantErr: "min_coverage",
		},
		{
			name:    "unknown cache type",
			mutate:  func(c *Config) { c.Cache.Type = "redis" },
			wantErr: "cache type",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Cache.Type = "sqlite"
				c.Cache.Path = ""
			},
			wantErr: "cache path",
		},
		{
			name:    "non-positive ttl",
			mutate:  func(c *Config) { c.Cache.TTLDays = 0 },
			wantErr: "ttl_days",
		},
		{
			name:    "no stores",
			mutate:  func(c *Config) { c.Stores = nil },
			wantErr: "at least one store",
		},
		{
			name:    "empty store id",
			mutate:  func(c *Config) { c.Stores[0].ID = "" },
			wantErr: "store id",
		},
		{
			name: "duplicate store id",
			mutate: func(c *Config) {
				c.Stores = append(c.Stores, StoreConfig{ID: "shufersal"})
			},
			wantErr: "duplicate store id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := validate(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
