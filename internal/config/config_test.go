package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "https://api.jsonbin.io/v3", cfg.JSONBin.BaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CLOUDBIN_STORAGE_BACKEND", "Redis")
	t.Setenv("CLOUDBIN_API_PORT", "9090")
	t.Setenv("CLOUDBIN_BCRYPT_COST", "99")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CLOUDBIN_DRIVE_RATE_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Auth.BcryptCost, "out-of-range cost falls back to default")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.DriveWindow)
}

func TestValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CLOUDBIN_STORAGE_BACKEND", "floppy")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("jsonbin without credentials", func(t *testing.T) {
		t.Setenv("CLOUDBIN_STORAGE_BACKEND", "jsonbin")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("short secret in production", func(t *testing.T) {
		t.Setenv("CLOUDBIN_ENV", "production")
		t.Setenv("CLOUDBIN_SESSION_SECRET", "short")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("jsonbin with credentials", func(t *testing.T) {
		t.Setenv("CLOUDBIN_STORAGE_BACKEND", "jsonbin")
		t.Setenv("JSONBIN_BIN_ID", "bin-1")
		t.Setenv("JSONBIN_MASTER_KEY", "key")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "bin-1", cfg.JSONBin.BinID)
	})
}
