// Package httptransport assembles the HTTP surface. It should delegate to
// domain services without embedding business logic so transport concerns
// remain isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	reviewhandler "cddflow/internal/review/handler"
	"cddflow/pkg/platform/httputil"
	"cddflow/pkg/platform/middleware/auth"
	"cddflow/pkg/platform/middleware/requestmeta"
)

// Deps carries everything the router mounts.
type Deps struct {
	Review *reviewhandler.Handler

	// AuthValidator guards the review endpoints. Nil disables auth for
	// local development.
	AuthValidator auth.Validator

	// HealthChecks are named dependency pings for /healthz.
	HealthChecks map[string]func(ctx context.Context) error

	Logger *slog.Logger
}

// NewRouter wires all endpoints: operational routes unauthenticated, review
// routes behind bearer auth.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestmeta.RequestID)
	r.Use(requestmeta.RequestTime)

	r.Get("/healthz", handleHealth(deps.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(protected chi.Router) {
		if deps.AuthValidator != nil {
			protected.Use(auth.RequireAuth(deps.AuthValidator, deps.Logger))
		}
		deps.Review.Register(protected)
	})

	return r
}

func handleHealth(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
