package bucket

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*InMemoryBucketStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewInMemoryBucketStore(WithClock(clock.Now)), clock
}

func TestInMemoryBucketStore_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("first request allowed", func(t *testing.T) {
		store, _ := newTestStore()
		result, err := store.Allow(ctx, "verify:1.2.3.4", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 10, result.Limit)
		assert.Equal(t, 9, result.Remaining)
		assert.Zero(t, result.RetryAfter)
	})

	t.Run("request over limit denied", func(t *testing.T) {
		store, _ := newTestStore()
		for i := range 3 {
			result, err := store.Allow(ctx, "k", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d", i+1)
			assert.Equal(t, 2-i, result.Remaining)
		}
		result, err := store.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.Equal(t, 60, result.RetryAfter)
	})

	t.Run("window slides past old hits", func(t *testing.T) {
		store, clock := newTestStore()
		_, err := store.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		clock.Advance(30 * time.Second)
		_, err = store.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 30, result.RetryAfter)

		clock.Advance(31 * time.Second)
		result, err = store.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store, _ := newTestStore()
		_, err := store.Allow(ctx, "a", 1, time.Minute)
		require.NoError(t, err)
		result, err := store.Allow(ctx, "b", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestInMemoryBucketStore_AllowN(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	result, err := store.AllowN(ctx, "k", 4, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)

	result, err = store.AllowN(ctx, "k", 2, 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "cost above remaining budget is denied")

	result, err = store.AllowN(ctx, "k", 1, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestInMemoryBucketStore_Reset(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	_, err := store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx, "k"))

	result, err := store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestInMemoryBucketStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.Allow(ctx, "k", 20, time.Minute)
			if err != nil || !result.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}

func TestInMemoryBucketStore_EvictsIdleKeys(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()

	for i := range evictEvery - 1 {
		_, err := store.Allow(ctx, fmt.Sprintf("ip-%d", i), 5, time.Minute)
		require.NoError(t, err)
	}
	require.Len(t, store.hits, evictEvery-1)

	clock.Advance(2 * time.Minute)
	_, err := store.Allow(ctx, "fresh", 5, time.Minute)
	require.NoError(t, err)
	assert.Len(t, store.hits, 1)
}
