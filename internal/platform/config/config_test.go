// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/platform/config"
)

func baseEnvironment() map[string]string {
	return map[string]string{
		"DATABASE_URL":        "postgres://localhost/chapterhub",
		"JWT_PUBLIC_KEY_PATH": "/keys/public.pem",
	}
}

/*
TestLoadFrom_Defaults verifies the fixed codec and reaper defaults.
*/
func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(baseEnvironment())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 2000, cfg.ImageMaxDimension)
	assert.Equal(t, 80, cfg.ImageQuality)
	assert.Equal(t, int64(50_000_000), cfg.ImageMaxPixels)
	assert.Equal(t, 3, cfg.ReaperAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.ReaperBaseDelay)
	assert.Equal(t, config.NumberingAppend, cfg.PageNumbering)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, 150, cfg.RateLimitBurst)
	assert.Equal(t, "chapterhub", cfg.JWTIssuer)
	assert.NotEmpty(t, cfg.ScratchDir)
	assert.False(t, cfg.UsesSQLite())
}

/*
TestLoadFrom_MissingRequired ensures required variables are enforced.
*/
func TestLoadFrom_MissingRequired(t *testing.T) {
	_, err := config.LoadFrom(map[string]string{})
	assert.Error(t, err)
}

/*
TestLoadFrom_Invalid covers settings rejected by validation.
*/
func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown_numbering", "PAGE_NUMBERING", "random"},
		{"zero_dimension", "IMAGE_MAX_DIMENSION", "0"},
		{"quality_out_of_range", "IMAGE_QUALITY", "101"},
		{"relative_prefix", "ASSET_URL_PREFIX", "uploads"},
		{"zero_file_bytes", "MAX_FILE_BYTES", "0"},
		{"zero_rate", "RATE_LIMIT_RPS", "0"},
		{"zero_pixels", "IMAGE_MAX_PIXELS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environment := baseEnvironment()
			environment[tt.key] = tt.value

			_, err := config.LoadFrom(environment)
			assert.Error(t, err)
		})
	}
}

/*
TestConfig_SQLite checks sqlite:// URL detection and path extraction.
*/
func TestConfig_SQLite(t *testing.T) {
	environment := baseEnvironment()
	environment["DATABASE_URL"] = "sqlite:///var/lib/chapterhub/data.db"
	environment["EXTRA_ORIGINS"] = "https://a.example, ,https://b.example"

	cfg, err := config.LoadFrom(environment)
	require.NoError(t, err)

	assert.True(t, cfg.UsesSQLite())
	assert.Equal(t, "/var/lib/chapterhub/data.db", cfg.SQLitePath())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}
