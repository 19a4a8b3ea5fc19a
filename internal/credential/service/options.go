package service

import (
	"context"
	"log/slog"

	"attest/internal/credential/metrics"
	"attest/internal/events"
	"attest/internal/platform/tracer"
	"attest/pkg/platform/audit"
)

// observability is shared by the issuer and the verifier.
type observability struct {
	logger     *slog.Logger
	auditor    *audit.Logger
	tracer     tracer.Tracer
	metrics    *metrics.Metrics
	dispatcher events.Dispatcher
}

// Option configures the Issuer or the Verifier.
type Option func(*observability)

func WithLogger(logger *slog.Logger) Option {
	return func(o *observability) {
		o.logger = logger
	}
}

func WithAuditor(auditor *audit.Logger) Option {
	return func(o *observability) {
		o.auditor = auditor
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(o *observability) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *observability) {
		o.metrics = m
	}
}

// WithDispatcher sets where lifecycle events go. Defaults to events.Noop.
func WithDispatcher(d events.Dispatcher) Option {
	return func(o *observability) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

func newObservability(opts []Option) observability {
	o := observability{
		tracer:     tracer.NewNoop(),
		dispatcher: events.Noop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *observability) logError(ctx context.Context, msg string, err error, attrs ...any) {
	if o.logger == nil {
		return
	}
	o.logger.ErrorContext(ctx, msg, append(attrs, "error", err)...)
}
