// Package httptransport assembles the public HTTP surface: middleware chain,
// probes, metrics and the authenticated verification API.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aip/internal/platform/metrics"
	"aip/internal/verification/handler"
	"aip/pkg/platform/httputil"
	authmw "aip/pkg/platform/middleware/auth"
	"aip/pkg/platform/middleware/metadata"
	request "aip/pkg/platform/middleware/request"
	"aip/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the router mounts.
type Deps struct {
	Verifications *handler.Handler
	Validator     authmw.JWTValidator
	Metrics       *metrics.Metrics
	Health        []HealthCheck
	Logger        *slog.Logger
}

// NewRouter wires every endpoint. Probes and /metrics are unauthenticated.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", healthHandler(d.Health, logger))

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, logger))
		d.Verifications.Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for _, c := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", c.Name, "error", err)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
