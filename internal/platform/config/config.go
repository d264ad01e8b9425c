// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, the ingestion pipeline) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/chapterhub/pkg/query"
)

// # Page Numbering Policies

const (
	// NumberingAppend offsets new page numbers by the chapter's current maximum.
	NumberingAppend = "append"

	// NumberingBatch numbers pages by their position within the uploaded batch.
	NumberingBatch = "batch"
)

// # Configuration Schema

// Config holds all runtime configuration for the API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database. "postgres://" selects PostgreSQL, "sqlite://" the embedded store.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis). Optional; enables buffered view counting.
	RedisURL string `env:"REDIS_URL"`

	// Public key used to verify access tokens issued by the identity service.
	JWTPubKeyPath string `env:"JWT_PUBLIC_KEY_PATH,required"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"chapterhub"`

	// Permanent asset storage
	StorageRoot    string `env:"STORAGE_ROOT"     envDefault:"./uploads"`
	AssetURLPrefix string `env:"ASSET_URL_PREFIX" envDefault:"/uploads"`

	// Scratch storage for inbound batches. Defaults to a directory under os.TempDir().
	ScratchDir string `env:"SCRATCH_DIR"`

	// Upload ceilings
	MaxBatchFiles int   `env:"MAX_BATCH_FILES" envDefault:"100"`
	MaxFileBytes  int64 `env:"MAX_FILE_BYTES"  envDefault:"10485760"`

	// Codec settings, fixed for the process lifetime
	ImageMaxDimension int   `env:"IMAGE_MAX_DIMENSION" envDefault:"2000"`
	ImageQuality      int   `env:"IMAGE_QUALITY"       envDefault:"80"`
	ImageMaxPixels    int64 `env:"IMAGE_MAX_PIXELS"    envDefault:"50000000"`

	// Ingestion pacing and cleanup
	IngestItemDelay time.Duration `env:"INGEST_ITEM_DELAY" envDefault:"100ms"`
	ReaperAttempts  int           `env:"REAPER_ATTEMPTS"   envDefault:"3"`
	ReaperBaseDelay time.Duration `env:"REAPER_BASE_DELAY" envDefault:"100ms"`
	PageNumbering   string        `env:"PAGE_NUMBERING"    envDefault:"append"`

	// View counting
	ViewFlushInterval time.Duration `env:"VIEW_FLUSH_INTERVAL" envDefault:"30s"`

	// Per-IP token bucket
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"150"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given key/value environment instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(options env.Options) (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "chapterhub-scratch")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects settings that would make the pipeline misbehave at runtime.
func (c *Config) validate() error {
	switch c.PageNumbering {
	case NumberingAppend, NumberingBatch:
	default:
		return fmt.Errorf("config: PAGE_NUMBERING must be %q or %q, got %q", NumberingAppend, NumberingBatch, c.PageNumbering)
	}

	positives := map[string]int{
		"MAX_BATCH_FILES":     c.MaxBatchFiles,
		"IMAGE_MAX_DIMENSION": c.ImageMaxDimension,
		"REAPER_ATTEMPTS":     c.ReaperAttempts,
		"RATE_LIMIT_BURST":    c.RateLimitBurst,
	}
	for name, value := range positives {
		if value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", name, value)
		}
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}

	if c.ImageMaxPixels <= 0 {
		return fmt.Errorf("config: IMAGE_MAX_PIXELS must be positive, got %d", c.ImageMaxPixels)
	}

	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("config: MAX_FILE_BYTES must be positive, got %d", c.MaxFileBytes)
	}

	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("config: IMAGE_QUALITY must be between 1 and 100, got %d", c.ImageQuality)
	}

	if !strings.HasPrefix(c.AssetURLPrefix, "/") {
		return fmt.Errorf("config: ASSET_URL_PREFIX must start with '/', got %q", c.AssetURLPrefix)
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesSQLite reports whether DatabaseURL selects the embedded SQLite store.
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite://")
}

// SQLitePath returns the database file path encoded in a sqlite:// URL.
func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
}

// AllowedOrigins returns EXTRA_ORIGINS split on commas, blanks removed.
func (c *Config) AllowedOrigins() []string {
	return query.StringSlice(c.ExtraOrigins)
}
