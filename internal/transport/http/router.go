package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attest/pkg/platform/middleware/auth"
	"attest/pkg/platform/middleware/metadata"
	"attest/pkg/platform/middleware/request"
	"attest/pkg/platform/middleware/requesttime"
)

// PublicRoutes are mounted without authentication.
type PublicRoutes interface {
	Register(r chi.Router)
}

// AdminRoutes are mounted behind the bearer-token middleware.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// Deps are the pieces the router mounts.
type Deps struct {
	Public []PublicRoutes
	// Limited routes are public but pass through RateLimit first.
	Limited   []PublicRoutes
	RateLimit func(http.Handler) http.Handler
	Admin     []AdminRoutes
	Validator auth.Validator
	// TrustedProxies may set X-Forwarded-For.
	TrustedProxies []netip.Prefix
	Metrics        *request.Metrics
	Logger         *slog.Logger
	Timeout        time.Duration
	// Clock fixes the per-request time; nil means the wall clock.
	Clock func() time.Time
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.New(d.Clock))
	r.Use(metadata.Capture(d.TrustedProxies))
	r.Use(request.LatencyMiddleware(d.Metrics))
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(request.ContentTypeJSON)

	r.Handle("/metrics", promhttp.Handler())

	for _, routes := range d.Public {
		routes.Register(r)
	}

	r.Group(func(limited chi.Router) {
		if d.RateLimit != nil {
			limited.Use(d.RateLimit)
		}
		for _, routes := range d.Limited {
			routes.Register(limited)
		}
	})

	r.Group(func(admin chi.Router) {
		admin.Use(auth.RequireAuth(d.Validator, d.Logger))
		for _, routes := range d.Admin {
			routes.RegisterAdmin(admin)
		}
	})

	return r
}
