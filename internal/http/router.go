// Package httpapi wires the public HTTP surface.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	animalhandler "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/handler"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate"
	gatemetrics "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate/metrics"
	ratelimitmw "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/middleware"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ui"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/httputil"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/middleware/metadata"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the router mounts.
type Deps struct {
	Animals     *animalhandler.Handler
	Gate        gate.Gate
	GateMetrics *gatemetrics.Metrics
	RateLimit   *ratelimitmw.Middleware
	// Checks run on /health, keyed by dependency name.
	Checks  map[string]HealthCheck
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the chi router. The gate only wraps the retrieval routes;
// the results view, health and metrics stay free.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)

	r.Group(func(paid chi.Router) {
		if d.RateLimit != nil {
			paid.Use(d.RateLimit.RateLimit())
		}
		paid.Use(gate.Middleware(d.Gate, d.Logger, d.GateMetrics))
		d.Animals.Register(paid)
	})

	ui.Register(r, animalhandler.ResultsPath)
	r.Get("/health", healthHandler(d.Checks))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
