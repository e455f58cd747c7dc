package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_MemoryStoreDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "memory")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, "logs/booking.log", cfg.BookingLogPath)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.False(t, cfg.IsProd())
}

func TestFromViper_MySQLRequiresDB(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "mysql")
	t.Setenv("DB_USER", "cinema")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "cinema")

	_, err := FromViper(newViper())
	require.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "DB_HOST")

	t.Setenv("DB_HOST", "127.0.0.1")
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, DBConfig{User: "cinema", Host: "127.0.0.1", Port: "3306", Name: "cinema"}, cfg.DB)
}

func TestFromViper_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE", "memory")

	_, err := FromViper(newViper())
	assert.ErrorIs(t, err, ErrMissing)
}

func TestFromViper_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "MEMORY")
	t.Setenv("HOLD_TTL", "90s")
	t.Setenv("SWEEP_INTERVAL", "250ms")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("CACHE_METHODS", "get, head")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.HoldTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.RateLimit.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.TTL)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.Methods)
}

func TestFromViper_Invalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	t.Setenv("STORE", "postgres")
	_, err := FromViper(newViper())
	assert.Error(t, err)

	t.Setenv("STORE", "memory")
	t.Setenv("HOLD_TTL", "soon")
	_, err = FromViper(newViper())
	assert.Error(t, err)
}
