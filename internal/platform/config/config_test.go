package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ATTEST_ADDR", "")
	t.Setenv("ATTEST_BASE_URL", "")
	t.Setenv("ATTEST_ENV", "")
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("ATTEST_EVENT_BUFFER", "")
	t.Setenv("ATTEST_TRUSTED_PROXIES", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("ATTEST_VERIFY_RATE_LIMIT", "")
	t.Setenv("ATTEST_VERIFY_RATE_WINDOW", "")
	t.Setenv("ATTEST_EXPIRY_SWEEP_INTERVAL", "")
	t.Setenv("ATTEST_DB_MAX_CONNS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 1024, cfg.Events.BufferSize)
	assert.Equal(t, 15*time.Minute, cfg.Server.TokenTTL)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, 60, cfg.RateLimit.VerifyLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.VerifyWindow)
	assert.Equal(t, time.Hour, cfg.Expiry.SweepInterval)
	assert.Equal(t, 100, cfg.Expiry.BatchSize)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ATTEST_BASE_URL", "https://credentials.example.org/")
	t.Setenv("ATTEST_EVENT_BUFFER", "64")
	t.Setenv("ATTEST_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.0.0/16")
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("ATTEST_VERIFY_RATE_LIMIT", "0")
	t.Setenv("ATTEST_VERIFY_RATE_WINDOW", "30s")
	t.Setenv("ATTEST_EXPIRY_SWEEP_INTERVAL", "0")
	t.Setenv("ATTEST_DB_MAX_CONNS", "3")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://credentials.example.org", cfg.Server.BaseURL)
	assert.Equal(t, 64, cfg.Events.BufferSize)
	assert.Len(t, cfg.Server.TrustedProxies, 2)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.Zero(t, cfg.RateLimit.VerifyLimit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.VerifyWindow)
	assert.Zero(t, cfg.Expiry.SweepInterval)
	assert.Equal(t, 3, cfg.Database.MaxOpenConns)
	assert.Equal(t, 3, cfg.Database.MaxIdleConns)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("bad event buffer", func(t *testing.T) {
		t.Setenv("ATTEST_EVENT_BUFFER", "-1")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("bad proxy prefix", func(t *testing.T) {
		t.Setenv("ATTEST_TRUSTED_PROXIES", "10.0.0.1")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("bad rate window", func(t *testing.T) {
		t.Setenv("ATTEST_VERIFY_RATE_WINDOW", "soon")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("zero db connections", func(t *testing.T) {
		t.Setenv("ATTEST_DB_MAX_CONNS", "0")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("negative sweep interval", func(t *testing.T) {
		t.Setenv("ATTEST_EXPIRY_SWEEP_INTERVAL", "-5m")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("dev signing key outside dev", func(t *testing.T) {
		t.Setenv("ATTEST_ENV", "production")
		t.Setenv("JWT_SIGNING_KEY", "")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
