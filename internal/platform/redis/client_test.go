package redis

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	c, err := New(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(config.RedisConfig{URL: "://nope"})
	require.Error(t, err)
}

func TestPoolCollector(t *testing.T) {
	stats := &redis.PoolStats{Hits: 7, Misses: 2, TotalConns: 3, IdleConns: 1}
	c := NewPoolCollector(redis.NewClient(&redis.Options{Addr: "localhost:0"}))
	c.stats = func() *redis.PoolStats { return stats }

	assert.Equal(t, 6, testutil.CollectAndCount(c))

	expected := `
# HELP attest_redis_pool_hits_total Times a free connection was found in the pool
# TYPE attest_redis_pool_hits_total counter
attest_redis_pool_hits_total 7
# HELP attest_redis_pool_total_conns Connections currently in the pool
# TYPE attest_redis_pool_total_conns gauge
attest_redis_pool_total_conns 3
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"attest_redis_pool_hits_total", "attest_redis_pool_total_conns"))
}
