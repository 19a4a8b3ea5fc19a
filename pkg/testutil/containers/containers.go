//go:build integration

// Package containers starts Postgres, Redis and Kafka once per test binary
// and shares them between suites. Containers are never terminated by a test;
// the testcontainers reaper removes them when the process exits.
package containers

import (
	"context"
	"sync"
	"testing"
	"time"
)

const startTimeout = 2 * time.Minute

// fixture starts its value at most once. A failed start is remembered and
// reported to every later caller.
type fixture[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (f *fixture[T]) get(t *testing.T, name string, start func(context.Context) (T, error)) T {
	t.Helper()
	f.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		f.val, f.err = start(ctx)
	})
	if f.err != nil {
		t.Fatalf("start %s: %v", name, f.err)
	}
	return f.val
}

type Manager struct {
	postgres fixture[*PostgresContainer]
	redis    fixture[*RedisContainer]
	kafka    fixture[*KafkaContainer]
}

var manager Manager

func GetManager() *Manager { return &manager }

// GetPostgres returns the shared database with migrations applied.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	return m.postgres.get(t, "postgres", startPostgres)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	return m.redis.get(t, "redis", startRedis)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	return m.kafka.get(t, "kafka", startKafka)
}
