package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 6*time.Hour, cfg.DataSource.CacheTTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "0 0 19 * * 1-5", cfg.Schedule.EvaluateCron)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	p := writeConfig(t, `
data_source:
  provider: alphavantage
  api_key: from-file
  cache_ttl: 30m
watchlist: [DE0007164600]
reference_indexes:
  LARGE: EXS1.DE
`)
	t.Setenv("ALPHAVANTAGE_API_KEY", "from-env")
	t.Setenv("WATCHLIST", "DE0007164600, DE0007236101 ,")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "from-env", cfg.DataSource.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.DataSource.CacheTTL)
	assert.Equal(t, []string{"DE0007164600", "DE0007236101"}, cfg.Watchlist)
	assert.True(t, cfg.Log.Pretty)

	idx, err := cfg.CapIndexes()
	require.NoError(t, err)
	assert.Equal(t, map[model.CapType]string{model.CapLarge: "EXS1.DE"}, idx)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "stooq" }},
		{"alphavantage without key", func(c *Config) { c.DataSource.Provider = "alphavantage" }},
		{"mysql without dsn", func(c *Config) { c.Database.Driver = "mysql" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"telegram half configured", func(c *Config) { c.Telegram.BotToken = "x" }},
		{"bad cap tier", func(c *Config) { c.ReferenceIndexes = map[string]string{"HUGE": "^X"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "watchlist: [unclosed"))
	assert.Error(t, err)
}
