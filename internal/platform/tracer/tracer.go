// Package tracer wraps OpenTelemetry spans for the issuer, verifier,
// revocation registry and stack evaluator. Service code sees Tracer and Span
// only; a span ended with an error is marked failed.
package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	SpanIssue         = "credential.issue"
	SpanSign          = "credential.sign"
	SpanVerify        = "credential.verify"
	SpanRevoke        = "credential.revoke"
	SpanStackEvaluate = "stack.evaluate"

	AttrCredentialID = "credential.id"
	AttrTemplateID   = "template.id"
	AttrIssuerID     = "issuer.id"
	AttrOutcome      = "verify.outcome"
)

type Attribute = attribute.KeyValue

func String(key, value string) Attribute { return attribute.String(key, value) }

func Int(key string, value int) Attribute { return attribute.Int(key, value) }

type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Span must be ended exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
}

type otelTracer struct {
	tracer trace.Tracer
}

// New starts spans on t, or on the global provider's "attest" tracer when t
// is nil.
func New(t trace.Tracer) Tracer {
	if t == nil {
		t = otel.Tracer("attest")
	}
	return otelTracer{tracer: t}
}

// NewNoop never records.
func NewNoop() Tracer {
	return New(noop.NewTracerProvider().Tracer("attest"))
}

func (t otelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.RecordError(err)
		s.SetStatus(codes.Error, err.Error())
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(attrs...)
}
