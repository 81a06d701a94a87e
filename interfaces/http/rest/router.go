package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mapcore/application/session"
	"mapcore/infrastructure/config"
	"mapcore/interfaces/http/rest/handlers"
	"mapcore/interfaces/http/rest/middleware"
	"mapcore/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	session *session.Session
	cfg     *config.Config
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(s *session.Session, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *Router {
	return &Router{
		session: s,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and telemetry
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg.JWTSecret, rt.cfg.JWTIssuer, rt.logger))

		sessionHandler := handlers.NewSessionHandler(rt.session, rt.logger)

		r.Route("/graph", func(r chi.Router) {
			r.Post("/load", sessionHandler.LoadGraph)
			r.Get("/", sessionHandler.GetGraph)
			r.Get("/analytics", sessionHandler.GetAnalytics)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/{nodeID}/select", sessionHandler.SelectNode)
			r.Post("/{nodeID}/click", sessionHandler.ClickNode)
		})

		r.Route("/viewport", func(r chi.Router) {
			r.Post("/", sessionHandler.UpdateViewport)
			r.Post("/reset", sessionHandler.ResetViewport)
			r.Post("/center/{nodeID}", sessionHandler.CenterViewport)
		})

		r.Post("/stage/click", sessionHandler.Deselect)
		r.Post("/hover", sessionHandler.Hover)
		r.Post("/link-mode", sessionHandler.SetLinkMode)
		r.Post("/links", sessionHandler.CreateLink)
		r.Get("/search", sessionHandler.Search)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once a snapshot source is wired
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
