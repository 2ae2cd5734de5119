package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/coursegen/internal/api"
	apiMiddleware "github.com/phrazzld/coursegen/internal/api/middleware"
	"github.com/phrazzld/coursegen/internal/api/shared"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
	DemoMode  bool     `json:"demo_mode"`
	// Healthy is filled only for /health?probe=true.
	Healthy map[string]bool `json:"healthy,omitempty"`
}

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	if app.metrics != nil {
		r.Use(app.metrics.Middleware)
	}

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	contentHandler := api.NewContentHandler(app.service)
	providerHandler := api.NewProviderHandler(app.service)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/providers", providerHandler.ListProviders)
			contentHandler.Routes(r)
		})
	})

	r.Get("/health", app.handleHealth)
	if app.metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	}

	return r
}

// handleHealth reports liveness and the providers that can serve requests.
// With probe=true every available provider is also sent a minimal request.
func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Providers: []string{}}
	if app.registry != nil {
		for _, name := range app.registry.Available() {
			resp.Providers = append(resp.Providers, string(name))
		}
		if probe, _ := strconv.ParseBool(r.URL.Query().Get("probe")); probe {
			resp.Healthy = make(map[string]bool)
			for name, healthy := range app.registry.HealthCheck(r.Context()) {
				resp.Healthy[string(name)] = healthy
				if !healthy {
					resp.Status = "degraded"
				}
			}
		}
	}
	if app.config != nil {
		resp.DemoMode = app.config.Server.DemoMode
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
