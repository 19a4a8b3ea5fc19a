// Package publisher persists audit events, either inline or through a bounded
// queue drained by one goroutine. A full queue drops the event rather than
// blocking the request that produced it.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "attest/pkg/domain-errors"
	audit "attest/pkg/platform/audit"
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics

	queue     chan audit.Event
	done      sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events for background persistence.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.metrics.trackQueue(p.queue)
		p.done.Go(p.drain)
	}
	return p
}

// Emit stamps a missing timestamp and persists the event. In async mode it
// returns as soon as the event is queued.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.queue == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.dropped()
		p.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
		return dErrors.New(dErrors.CodeInternal, "audit queue full")
	}
}

func (p *Publisher) drain() {
	for event := range p.queue {
		if err := p.persist(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"subject", event.Subject,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, event)
	p.metrics.persisted(time.Since(start), err)
	return err
}

// Close stops accepting queued events and waits until the queue is empty.
// Emit must not be called after Close.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.closeOnce.Do(func() { close(p.queue) })
	p.done.Wait()
}
