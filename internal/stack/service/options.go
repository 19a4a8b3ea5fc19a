package service

import (
	"log/slog"

	"attest/internal/events"
	"attest/internal/platform/tracer"
	"attest/internal/stack/metrics"
	"attest/pkg/platform/audit"
)

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

func WithAuditor(auditor *audit.Logger) Option {
	return func(e *Evaluator) { e.auditor = auditor }
}

func WithTracer(t tracer.Tracer) Option {
	return func(e *Evaluator) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

func WithDispatcher(d events.Dispatcher) Option {
	return func(e *Evaluator) {
		if d != nil {
			e.dispatcher = d
		}
	}
}

// WithBonusAwarder replaces the no-op awarder.
func WithBonusAwarder(b BonusAwarder) Option {
	return func(e *Evaluator) {
		if b != nil {
			e.bonus = b
		}
	}
}
