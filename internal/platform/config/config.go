package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	BaseURL        string
	Environment    string
	JWTSigningKey  string
	TokenTTL       time.Duration
	TrustedProxies []netip.Prefix
	Tracing        bool
}

// Keys configures at-rest protection of issuer private keys.
type Keys struct {
	// PlatformSecret is the input keying material for the at-rest cipher.
	// Empty means signing with stored keys is unavailable.
	PlatformSecret string
}

// DatabaseConfig selects the Postgres stores. Empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the issuer profile cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the outbound credential event sink.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// Events configures the async outbound queue.
type Events struct {
	BufferSize int
}

// Expiry configures the background sweep that marks lapsed credentials
// expired. A zero SweepInterval disables it; verification still expires
// credentials lazily.
type Expiry struct {
	SweepInterval time.Duration
	BatchSize     int
}

// RateLimit bounds public verification per client IP. A zero VerifyLimit
// disables the limiter.
type RateLimit struct {
	VerifyLimit  int
	VerifyWindow time.Duration
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Keys      Keys
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Events    Events
	Expiry    Expiry
	RateLimit RateLimit
	SeedFile  string
}

const devJWTSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          envOr("ATTEST_ADDR", ":8080"),
			BaseURL:       strings.TrimRight(envOr("ATTEST_BASE_URL", "http://localhost:8080"), "/"),
			Environment:   envOr("ATTEST_ENV", "dev"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", devJWTSigningKey),
			TokenTTL:      15 * time.Minute,
			Tracing:       os.Getenv("ATTEST_TRACING") == "true",
		},
		Keys: Keys{
			PlatformSecret: os.Getenv("ATTEST_KEY_SECRET"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   envOr("KAFKA_CREDENTIAL_TOPIC", "attest.credentials"),
		},
		Events: Events{
			BufferSize: 1024,
		},
		Expiry: Expiry{
			SweepInterval: time.Hour,
			BatchSize:     100,
		},
		RateLimit: RateLimit{
			VerifyLimit:  60,
			VerifyWindow: time.Minute,
		},
		SeedFile: os.Getenv("ATTEST_SEED_FILE"),
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
		}
		cfg.Server.TokenTTL = d
	}
	if v := os.Getenv("ATTEST_DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("ATTEST_DB_MAX_CONNS must be a positive integer, got %q", v)
		}
		cfg.Database.MaxOpenConns = n
		cfg.Database.MaxIdleConns = min(cfg.Database.MaxIdleConns, n)
	}
	if v := os.Getenv("ATTEST_EVENT_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("ATTEST_EVENT_BUFFER must be a positive integer, got %q", v)
		}
		cfg.Events.BufferSize = n
	}
	if v := os.Getenv("ATTEST_EXPIRY_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("ATTEST_EXPIRY_SWEEP_INTERVAL must be a non-negative duration, got %q", v)
		}
		cfg.Expiry.SweepInterval = d
	}
	if v := os.Getenv("ATTEST_VERIFY_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("ATTEST_VERIFY_RATE_LIMIT must be a non-negative integer, got %q", v)
		}
		cfg.RateLimit.VerifyLimit = n
	}
	if v := os.Getenv("ATTEST_VERIFY_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("ATTEST_VERIFY_RATE_WINDOW must be a positive duration, got %q", v)
		}
		cfg.RateLimit.VerifyWindow = d
	}
	if v := os.Getenv("ATTEST_TRUSTED_PROXIES"); v != "" {
		prefixes, err := parsePrefixes(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Server.TrustedProxies = prefixes
	}
	if cfg.Server.Environment != "dev" && cfg.Server.JWTSigningKey == devJWTSigningKey {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY must be set outside dev")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, fmt.Errorf("ATTEST_TRUSTED_PROXIES: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
