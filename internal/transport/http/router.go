// Package httptransport wires all public endpoints with middleware.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "trustchain/internal/certificate/handler"
	identityhandler "trustchain/internal/identity/handler"
	"trustchain/internal/platform/health"
	"trustchain/internal/platform/metrics"
	"trustchain/internal/platform/middleware"
)

// NewRouter assembles the HTTP surface: public auth and verification
// endpoints, the authenticated issuance endpoint, health probes, and metrics.
func NewRouter(
	certs *certhandler.Handler,
	identity *identityhandler.Handler,
	healthHandler *health.Handler,
	validator middleware.TokenValidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	// Public identity endpoints
	r.Post("/api/auth/register", identity.HandleRegister)
	r.Post("/api/auth/login", identity.HandleLogin)

	// Certificate endpoints: issuance requires a verified issuer token,
	// verification is public by design.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		r.Post("/api/certs/issue", certs.HandleIssue)
	})
	r.Get("/api/certs/verify", certs.HandleVerify)

	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
