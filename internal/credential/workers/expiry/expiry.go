// Package expiry sweeps active credentials whose validity window has elapsed
// and moves them to expired, so holdings and stack progress do not wait for
// someone to verify them.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"attest/internal/credential/models"
	"attest/pkg/requestcontext"
)

// ExpiredLister finds active credentials past their expiry.
type ExpiredLister interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.IssuedCredential, error)
}

// Expirer applies the active to expired transition with its audit trail and
// event.
type Expirer interface {
	Expire(ctx context.Context, cred *models.IssuedCredential) (bool, error)
}

// Result summarizes one sweep.
type Result struct {
	Examined int
	Expired  int
}

// Sweeper periodically expires lapsed credentials.
type Sweeper struct {
	credentials ExpiredLister
	expirer     Expirer
	interval    time.Duration
	batchSize   int
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures Sweeper.
type Option func(*Sweeper)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatchSize overrides how many credentials one query loads.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Sweeper with required collaborators and options applied.
func New(credentials ExpiredLister, expirer Expirer, opts ...Option) (*Sweeper, error) {
	if credentials == nil || expirer == nil {
		return nil, fmt.Errorf("credentials and expirer are required")
	}
	s := &Sweeper{
		credentials: credentials,
		expirer:     expirer,
		interval:    time.Hour,
		batchSize:   100,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start sweeps periodically until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "credential expiry sweep failed",
					"error", err,
					"examined", res.Examined,
					"expired", res.Expired,
				)
				continue
			}
			if res.Expired > 0 {
				s.logger.InfoContext(ctx, "credential expiry sweep",
					"examined", res.Examined,
					"expired", res.Expired,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce expires every credential lapsed at the current time, a batch at a
// time. A batch with failures ends the run so a persistently failing row
// cannot spin the loop; the remaining rows are picked up next tick.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	ctx = requestcontext.WithTime(ctx, now)

	var res Result
	for {
		batch, err := s.credentials.ListExpired(ctx, now, s.batchSize)
		if err != nil {
			return res, fmt.Errorf("list expired credentials: %w", err)
		}

		var errs []error
		for _, cred := range batch {
			res.Examined++
			expired, err := s.expirer.Expire(ctx, cred)
			if err != nil {
				errs = append(errs, fmt.Errorf("expire credential %s: %w", cred.ID, err))
				continue
			}
			if expired {
				res.Expired++
			}
		}
		if len(errs) > 0 {
			return res, errors.Join(errs...)
		}
		if len(batch) < s.batchSize {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
}
