package events

import (
	"context"
	"log/slog"
	"sync"
)

// Bus fans events out to subscribers in registration order, synchronously on
// the caller's goroutine. A failing handler is logged and does not stop the
// others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler
	logger   *slog.Logger
}

// NewBus constructs an empty bus. logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{handlers: make(map[Type][]Handler), logger: logger}
}

// Subscribe registers h for one event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event type. These run after the
// type-specific handlers.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

func (b *Bus) Dispatch(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil && b.logger != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"error", err,
				"event_type", string(event.Type),
				"credential_id", event.CredentialID.String(),
			)
		}
	}
}
