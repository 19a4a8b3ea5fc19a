package audit

import (
	"context"
	"log/slog"

	"attest/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
// Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event emission.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
	maskIP     func(string) string
}

type LoggerOption func(*Logger)

// WithIPMasker transforms the caller IP before it is persisted.
func WithIPMasker(mask func(string) string) LoggerOption {
	return func(l *Logger) {
		l.maskIP = mask
	}
}

// NewLogger creates an audit logger. emitter may be nil.
func NewLogger(textLogger *slog.Logger, emitter Emitter, opts ...LoggerOption) *Logger {
	l := &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log writes an audit line and emits an Event. The actor, request id and
// caller metadata are taken from ctx; "subject" and "reason" are lifted out
// of the attributes when present.
//
//	logger.Log(ctx, audit.EventCredentialRevoked, "subject", credID.String(), "reason", "fraud")
func (l *Logger) Log(ctx context.Context, event AuditEvent, attributes ...any) {
	if l == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	l.logToText(ctx, string(event), attributes)
	l.emitToAudit(ctx, string(event), requestID, attributes)
}

func (l *Logger) logToText(ctx context.Context, event string, attributes []any) {
	if l.textLogger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	l.textLogger.InfoContext(ctx, event, args...)
}

func (l *Logger) emitToAudit(ctx context.Context, event, requestID string, attributes []any) {
	if l.emitter == nil {
		return
	}

	md := requestcontext.Metadata(ctx)
	ip := md.IP
	if l.maskIP != nil && ip != "" {
		ip = l.maskIP(ip)
	}
	err := l.emitter.Emit(ctx, Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   requestcontext.Actor(ctx),
		Subject:   extractString(attributes, "subject"),
		Action:    event,
		Reason:    extractString(attributes, "reason"),
		RequestID: requestID,
		IP:        ip,
		UserAgent: md.UserAgent,
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", event,
		)
	}
}

// extractString finds the value following key in a slog-style key/value list.
func extractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		k, ok := attributes[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attributes[i+1].(string); ok {
			return v
		}
	}
	return ""
}
