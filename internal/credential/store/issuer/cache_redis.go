package issuer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"attest/internal/credential/metrics"
	"attest/internal/credential/models"
	id "attest/pkg/domain"
)

const profileKeyPrefix = "attest:issuer:profile:"

// Finder loads issuers from the system of record.
type Finder interface {
	FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error)
}

// StoreProfiles serves issuer profiles straight from a Finder. Used when no
// Redis is configured.
type StoreProfiles struct {
	finder Finder
}

// NewStoreProfiles wraps finder as a profile source.
func NewStoreProfiles(finder Finder) *StoreProfiles {
	return &StoreProfiles{finder: finder}
}

func (p *StoreProfiles) Profile(ctx context.Context, issuerID id.IssuerID) (*models.IssuerProfile, error) {
	iss, err := p.finder.FindByID(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	profile := iss.Profile()
	return &profile, nil
}

// RedisProfileCache caches the public issuer profile in Redis. Private key
// material is never written to the cache. Redis failures degrade to a store
// read.
type RedisProfileCache struct {
	client  *redis.Client
	ttl     time.Duration
	finder  Finder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRedisProfileCache constructs the cache. metrics and logger may be nil.
func NewRedisProfileCache(client *redis.Client, ttl time.Duration, finder Finder, m *metrics.Metrics, logger *slog.Logger) *RedisProfileCache {
	return &RedisProfileCache{
		client:  client,
		ttl:     ttl,
		finder:  finder,
		metrics: m,
		logger:  logger,
	}
}

// Profile returns the cached profile, loading and caching it on a miss.
func (c *RedisProfileCache) Profile(ctx context.Context, issuerID id.IssuerID) (*models.IssuerProfile, error) {
	key := profileKey(issuerID)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile models.IssuerProfile
		if decodeErr := json.Unmarshal(data, &profile); decodeErr == nil {
			c.metrics.IncProfileCacheHit()
			return &profile, nil
		}
		c.logWarn(ctx, "discarding undecodable issuer profile", issuerID, nil)
	case errors.Is(err, redis.Nil):
	default:
		c.metrics.IncProfileCacheError()
		c.logWarn(ctx, "issuer profile cache read failed", issuerID, err)
	}

	c.metrics.IncProfileCacheMiss()
	iss, err := c.finder.FindByID(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	profile := iss.Profile()
	if payload, err := json.Marshal(profile); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.metrics.IncProfileCacheError()
			c.logWarn(ctx, "issuer profile cache write failed", issuerID, err)
		}
	}
	return &profile, nil
}

// Invalidate drops the cached profile, e.g. after a key rotation.
func (c *RedisProfileCache) Invalidate(ctx context.Context, issuerID id.IssuerID) error {
	if err := c.client.Del(ctx, profileKey(issuerID)).Err(); err != nil {
		return fmt.Errorf("invalidate issuer profile: %w", err)
	}
	return nil
}

func (c *RedisProfileCache) logWarn(ctx context.Context, msg string, issuerID id.IssuerID, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, msg, "issuer_id", issuerID.String(), "error", err)
}

func profileKey(issuerID id.IssuerID) string {
	return profileKeyPrefix + issuerID.String()
}
