package bucket

import (
	"context"
	"slices"
	"sync"
	"time"

	"attest/internal/ratelimit/models"
)

// evictEvery is how many calls pass between sweeps of idle keys.
const evictEvery = 1024

// InMemoryBucketStore keeps one sliding window of hit times per key. Budgets
// are per process; RedisBucketStore shares them across instances.
type InMemoryBucketStore struct {
	mu    sync.Mutex
	now   func() time.Time
	hits  map[string]*window
	calls int
}

type window struct {
	span time.Duration
	at   []time.Time // oldest first
}

// expire drops hits that have left the window ending at now.
func (w *window) expire(now time.Time) {
	cutoff := now.Add(-w.span)
	keep := slices.IndexFunc(w.at, func(t time.Time) bool { return t.After(cutoff) })
	if keep < 0 {
		w.at = w.at[:0]
		return
	}
	w.at = w.at[keep:]
}

type Option func(*InMemoryBucketStore)

func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) { s.now = now }
}

func NewInMemoryBucketStore(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{now: time.Now, hits: make(map[string]*window)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, span time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, span)
}

// AllowN records cost hits for key when they all fit under limit; otherwise
// it records nothing.
func (s *InMemoryBucketStore) AllowN(_ context.Context, key string, cost, limit int, span time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.calls++
	if s.calls%evictEvery == 0 {
		s.evictIdle(now)
	}

	w := s.hits[key]
	if w == nil {
		w = &window{span: span}
		s.hits[key] = w
	}
	w.expire(now)

	res := &models.RateLimitResult{Limit: limit, ResetAt: now.Add(span)}
	if len(w.at)+cost <= limit {
		for range cost {
			w.at = append(w.at, now)
		}
		res.Allowed = true
		res.Remaining = limit - len(w.at)
	}
	if len(w.at) > 0 {
		res.ResetAt = w.at[0].Add(span)
	}
	res.RetryAfter = models.RetryAfterSeconds(res.Allowed, res.ResetAt, now)
	return res, nil
}

func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hits, key)
	return nil
}

func (s *InMemoryBucketStore) evictIdle(now time.Time) {
	for key, w := range s.hits {
		if w.expire(now); len(w.at) == 0 {
			delete(s.hits, key)
		}
	}
}
