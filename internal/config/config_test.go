package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.True(t, cfg.SweeperEnabled)
	assert.Equal(t, 10*time.Minute, cfg.Hold.HoldTTL)
	assert.Equal(t, 60*time.Second, cfg.Hold.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.Hold.ShortNoticeWindow)
	assert.Equal(t, 50, cfg.Hold.CancellationFeePercent)
	assert.False(t, cfg.NATS.Enabled)
	assert.False(t, cfg.Elasticsearch.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HOLD_TTL", "5m")
	t.Setenv("HOLD_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("DB_PORT", "6543")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.Hold.HoldTTL)
	assert.Equal(t, 60*time.Second, cfg.Hold.SweepInterval)
	assert.Equal(t, 6543, cfg.Database.Port)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	err := os.WriteFile(file, []byte("PAYMENT_TEAM_SLUG=from-file\nLOG_LEVEL=debug\n"), 0o600)
	assert.NoError(t, err)

	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("PAYMENT_TEAM_SLUG") })

	cfg := Load(file)

	assert.Equal(t, "from-file", cfg.Payment.TeamSlug)
	assert.Equal(t, "warn", cfg.LogLevel)
}
