// Package requestcontext carries request-scoped values (request id, acting
// user, client metadata) explicitly through context so services never reach
// for ambient globals.
package requestcontext

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

type (
	requestIDKey struct{}
	actorKey     struct{}
	metadataKey  struct{}
)

// ClientMetadata describes the caller of a request. It is attached to audit
// events for verification lookups, which are unauthenticated.
type ClientMetadata struct {
	IP        string
	UserAgent string
	Browser   string
	OS        string
	Mobile    bool
}

// WithRequestID stores the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id, or "" when absent.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithActor stores the authenticated user performing the request.
func WithActor(ctx context.Context, actor id.UserID) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the authenticated user, or a nil UserID for anonymous calls.
func Actor(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(actorKey{}).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

// WithClientMetadata stores the caller's network and user-agent details.
func WithClientMetadata(ctx context.Context, md ClientMetadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, md)
}

// Metadata returns the caller metadata captured by the metadata middleware.
func Metadata(ctx context.Context) ClientMetadata {
	if v, ok := ctx.Value(metadataKey{}).(ClientMetadata); ok {
		return v
	}
	return ClientMetadata{}
}

type nowKey struct{}

// WithTime pins the request-scoped "now". Every timestamp produced while
// handling one request (issuance date, proof creation, expiry checks) reads it.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, t)
}

// Now returns the request-scoped time in UTC, falling back to the wall clock
// for workers, CLIs and tests that did not pin one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t.UTC()
	}
	return time.Now().UTC()
}
