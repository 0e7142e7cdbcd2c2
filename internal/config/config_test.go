package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so host settings don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "BIRDEYE_API_KEY", "BIRDEYE_REST_URL", "BIRDEYE_WS_URL",
		"SNAPSHOT_PATH", "SNAPSHOT_LIMIT", "SNAPSHOT_TIMEOUT", "STORE_CAPACITY",
		"CACHE_TTL", "MAX_GEMS", "LISTENER_BASE_DELAY", "LISTENER_MAX_DELAY",
		"LISTENER_IDLE_TIMEOUT", "CORS_ORIGINS", "POSTGRES_DSN", "CLICKHOUSE_DSN",
		"REDIS_URL", "LOG_LEVEL", "LOG_FORMAT", "FILTER_MIN_MARKET_CAP",
		"FILTER_MAX_MARKET_CAP", "FILTER_MIN_VOLUME", "FILTER_MAX_AGE",
		"BIRDEYE_MAX_RETRIES", "BIRDEYE_RETRY_DELAY",
	} {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
			os.Unsetenv(k)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.HasAPIKey())
	assert.Equal(t, "/defi/token_trending", cfg.Snapshot.Path)
	assert.Equal(t, 20, cfg.Snapshot.Limit)
	assert.Equal(t, 10*time.Second, cfg.Snapshot.Timeout)
	assert.Zero(t, cfg.Birdeye.MaxRetries)
	assert.Equal(t, time.Second, cfg.Birdeye.RetryDelay)
	assert.Equal(t, 200, cfg.StoreCapacity)
	assert.Equal(t, 60*time.Second, cfg.Gems.CacheTTL)
	assert.Equal(t, 15, cfg.Gems.MaxGems)
	assert.Equal(t, 5*time.Second, cfg.Listener.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Listener.MaxDelay)
	assert.Equal(t, 30*time.Second, cfg.Listener.IdleTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.Filter)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("BIRDEYE_API_KEY", "key")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CACHE_TTL", "15s")
	t.Setenv("FILTER_MIN_MARKET_CAP", "10000")
	t.Setenv("FILTER_MAX_MARKET_CAP", "500000")
	t.Setenv("FILTER_MAX_AGE", "2h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BIRDEYE_MAX_RETRIES", "2")
	t.Setenv("BIRDEYE_RETRY_DELAY", "250ms")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.HasAPIKey())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.Gems.CacheTTL)
	assert.Equal(t, 10000.0, cfg.Filter.MinMarketCap)
	assert.Equal(t, 2*time.Hour, cfg.Filter.MaxAge)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 2, cfg.Birdeye.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Birdeye.RetryDelay)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MAX_GEMS=5\nLOG_FORMAT=console\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MAX_GEMS")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Gems.MaxGems)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"not a number", map[string]string{"MAX_GEMS": "many"}},
		{"zero capacity", map[string]string{"STORE_CAPACITY": "0"}},
		{"max delay below base", map[string]string{"LISTENER_BASE_DELAY": "10s", "LISTENER_MAX_DELAY": "1s"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad snapshot path", map[string]string{"SNAPSHOT_PATH": "defi"}},
		{"negative filter", map[string]string{"FILTER_MIN_VOLUME": "-1"}},
		{"too many retries", map[string]string{"BIRDEYE_MAX_RETRIES": "9"}},
		{"zero retry delay", map[string]string{"BIRDEYE_RETRY_DELAY": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestValidate_FilterBand(t *testing.T) {
	clearEnv(t)
	t.Setenv("FILTER_MIN_MARKET_CAP", "500")
	t.Setenv("FILTER_MAX_MARKET_CAP", "100")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
