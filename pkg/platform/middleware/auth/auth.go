// Package auth guards operator endpoints with bearer tokens. The token's
// subject becomes the request actor; its scopes gate individual routes.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	id "attest/pkg/domain"
	"attest/pkg/requestcontext"
)

const (
	ScopeIssue  = "credentials:issue"
	ScopeRevoke = "credentials:revoke"
)

// Claims is what a validated token tells the middleware.
type Claims struct {
	UserID string
	JTI    string
	Scopes []string
}

type Validator interface {
	ValidateToken(token string) (*Claims, error)
}

type scopesKey struct{}

// WithScopes stores the caller's granted scopes.
func WithScopes(ctx context.Context, scopes ...string) context.Context {
	return context.WithValue(ctx, scopesKey{}, scopes)
}

func Scopes(ctx context.Context) []string {
	s, _ := ctx.Value(scopesKey{}).([]string)
	return s
}

const (
	descMissing = `{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`
	descInvalid = `{"error":"unauthorized","error_description":"Invalid or expired token"}`
)

// RequireAuth rejects requests without a valid bearer token and otherwise
// attaches the actor and scopes to the context.
func RequireAuth(v Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(msg, body string, err error) {
				logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
				writeJSON(w, http.StatusUnauthorized, body)
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reject("missing bearer token", descMissing, nil)
				return
			}
			claims, err := v.ValidateToken(token)
			if err != nil {
				reject("invalid bearer token", descInvalid, err)
				return
			}
			actor, err := id.ParseUserID(claims.UserID)
			if err != nil {
				reject("token subject is not a user id", descInvalid, err)
				return
			}

			ctx = requestcontext.WithActor(ctx, actor)
			ctx = WithScopes(ctx, claims.Scopes...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope lets a request through only when RequireAuth granted scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	body := `{"error":"forbidden","error_description":"token lacks scope ` + scope + `"}`
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(Scopes(r.Context()), scope) {
				writeJSON(w, http.StatusForbidden, body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
