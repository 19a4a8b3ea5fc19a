// Package requesttime captures one "now" per HTTP request so issuance,
// proof creation and expiry checks agree on the same instant.
package requesttime

import (
	"net/http"
	"time"

	"attest/pkg/requestcontext"
)

// New stores clock() in the request context, in UTC. A nil clock means
// time.Now.
func New(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Middleware is New with the wall clock.
var Middleware = New(nil)
