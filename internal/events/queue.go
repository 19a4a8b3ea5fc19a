package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"attest/internal/events/metrics"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room.
var ErrQueueFull = errors.New("event queue full")

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("event queue closed")

// Sink delivers an event to an external system.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Queue hands events to a Sink on a background worker so delivery latency
// never reaches the request path. Enqueue drops when the buffer is full.
type Queue struct {
	sink    Sink
	events  chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

func WithQueueMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) { q.metrics = m }
}

// NewQueue creates a queue with the given buffer. Call Run to start delivery.
func NewQueue(sink Sink, buffer int, opts ...QueueOption) *Queue {
	if buffer <= 0 {
		buffer = 1
	}
	q := &Queue{
		sink:   sink,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue buffers event for delivery without blocking.
func (q *Queue) Enqueue(event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- event:
		q.metrics.IncQueueDepth()
		return nil
	default:
		q.metrics.IncDropped()
		if q.logger != nil {
			q.logger.Warn("event queue full, event dropped",
				"event_type", string(event.Type),
				"credential_id", event.CredentialID.String(),
			)
		}
		return ErrQueueFull
	}
}

// Handle adapts Enqueue to a bus Handler.
func (q *Queue) Handle(_ context.Context, event Event) error {
	return q.Enqueue(event)
}

// Run delivers events until ctx is cancelled or Close is called, then drains
// what is already buffered. It returns nil on a clean shutdown.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.done)
	for {
		select {
		case event, ok := <-q.events:
			if !ok {
				return nil
			}
			q.deliver(context.WithoutCancel(ctx), event)
		case <-ctx.Done():
			q.Close()
			for event := range q.events {
				q.deliver(context.WithoutCancel(ctx), event)
			}
			return nil
		}
	}
}

// Close stops accepting events. Buffered events are still delivered by Run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.events)
}

// Wait blocks until Run has returned.
func (q *Queue) Wait() {
	<-q.done
}

func (q *Queue) deliver(ctx context.Context, event Event) {
	q.metrics.DecQueueDepth()
	if err := q.sink.Publish(ctx, event); err != nil {
		q.metrics.IncDeliveryFailure()
		if q.logger != nil {
			q.logger.ErrorContext(ctx, "event delivery failed",
				"error", err,
				"event_type", string(event.Type),
				"credential_id", event.CredentialID.String(),
			)
		}
		return
	}
	q.metrics.IncDelivered()
}
