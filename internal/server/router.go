// Package server assembles the HTTP routes of the media gateway.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/mediagate/service/internal/auth"
	"github.com/mediagate/service/internal/metrics"
	appMiddleware "github.com/mediagate/service/internal/middleware"
	"github.com/mediagate/service/internal/proxy"
	"github.com/mediagate/service/internal/response"
	"github.com/mediagate/service/internal/upload"

	_ "github.com/mediagate/service/docs/swagger"
)

// Deps are the collaborators the router wires into routes.
type Deps struct {
	Logger      *slog.Logger
	Verifier    auth.Verifier
	Uploads     *upload.Handler
	Proxy       *proxy.Handler
	Metrics     *metrics.Metrics
	CORSOrigins []string
	// ExposeErrors includes internal error messages in 500 responses.
	ExposeErrors bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRouter builds the http.Handler serving every endpoint.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(d.Logger))
	r.Use(d.Metrics.Middleware)
	r.Use(appMiddleware.Recoverer(d.Logger, d.ExposeErrors))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w)
	})

	r.Get("/health", health)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/upload", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(d.Verifier, d.Logger))
			r.Post("/profile", d.Uploads.UploadProfile)
			r.Post("/post", d.Uploads.UploadPost)
		})
		r.Get("/proxy", d.Proxy.Relay)
	})

	return r
}

// health godoc
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}
