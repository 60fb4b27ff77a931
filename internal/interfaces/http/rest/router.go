package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"activegraph/internal/config"
)

// Router assembles the HTTP surface: graph endpoints, health and, when
// metrics are enabled, the Prometheus scrape endpoint.
type Router struct {
	handler  *Handler
	observer RequestObserver
	metrics  http.Handler
	origins  []string
	logger   *zap.Logger
}

// NewRouter creates a router. observer and metrics may be nil.
func NewRouter(
	handler *Handler,
	observer RequestObserver,
	metrics http.Handler,
	cfg config.Server,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handler:  handler,
		observer: observer,
		metrics:  metrics,
		origins:  cfg.AllowedOrigins,
		logger:   logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))
	if rt.observer != nil {
		router.Use(observeRequests(rt.observer))
	}

	if len(rt.origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Location"},
			MaxAge:         300,
		}))
	}

	router.Get("/healthz", healthCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics)
	}

	h := rt.handler
	router.Route("/nodes", func(r chi.Router) {
		r.Post("/", h.CreateNode())
		r.Get("/", h.ListNodes())
		r.Get("/{id}", h.GetNode())
		r.Put("/{id}", h.ReplaceNode())
		r.Patch("/{id}", h.MergeNode())
		r.Delete("/{id}", h.DeleteNode())
		r.Post("/{id}/disconnect", h.DisconnectNode())
		r.Get("/{id}/neighbours", h.Neighbours())
	})

	router.Route("/connections", func(r chi.Router) {
		r.Post("/", h.CreateConnection())
		r.Get("/", h.ListConnections())
		r.Get("/{id}", h.GetConnection())
		r.Patch("/{id}", h.UpdateConnection())
		r.Delete("/{id}", h.DeleteConnection())
	})

	router.Get("/graph", h.GetGraph())
	router.Patch("/graph", h.MergeGraph())
	router.Get("/stats", h.Stats())

	return router
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
