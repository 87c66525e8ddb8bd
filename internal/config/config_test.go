package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "insights.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.NotEmpty(t, cfg.Anthropic.Model)
	assert.Equal(t, 7, cfg.Facts.WindowMonths)
	assert.Equal(t, 24, cfg.Facts.StalenessHours)
	assert.Equal(t, 6, cfg.Generate.RatePerMinute)
	assert.Equal(t, 2, cfg.Generate.RateBurst)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("INSIGHTS_STORE_DRIVER", "postgres")
	t.Setenv("INSIGHTS_FACTS_WINDOW_MONTHS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Facts.WindowMonths)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope"}))
}
