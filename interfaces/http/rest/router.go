package rest

import (
	"net/http"
	"strings"

	"catgraph/application/commands"
	"catgraph/application/commands/bus"
	querybus "catgraph/application/queries/bus"
	"catgraph/interfaces/http/rest/handlers"
	"catgraph/interfaces/http/rest/middleware"
	v1 "catgraph/interfaces/http/rest/v1"
	"catgraph/pkg/observability"
	"catgraph/pkg/ratelimit"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config carries the router's tunables so the REST layer stays free of
// infrastructure imports.
type Config struct {
	Version        string
	EnableCORS     bool
	AllowedOrigins []string
}

// Deps bundles everything the router wires into handlers and middleware.
// Limiter, Collector and Outbox are optional; a nil value turns the
// corresponding feature off.
type Deps struct {
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	BulkLink   *commands.BulkLinkCategoriesHandler
	Pruner     *commands.PruneOrphanEdgesHandler
	Outbox     handlers.OutboxStats
	Limiter    ratelimit.RateLimiter
	Collector  *observability.Collector
	Logger     *zap.Logger
}

// Router creates and configures the HTTP router
type Router struct {
	cfg  Config
	deps Deps
}

// NewRouter creates a new router instance
func NewRouter(cfg Config, deps Deps) *Router {
	return &Router{cfg: cfg, deps: deps}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.deps.Logger))
	router.Use(versionMiddleware)
	if rt.deps.Collector != nil {
		router.Use(middleware.Metrics(rt.deps.Collector))
	}
	if rt.deps.Limiter != nil {
		router.Use(middleware.RateLimit(rt.deps.Limiter, rt.deps.Logger))
	}

	if rt.cfg.EnableCORS {
		origins := rt.cfg.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000", "https://*.catgraph.io"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Snapshot-Version"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Probes and scrape endpoint
	healthHandler := handlers.NewHealthHandler(rt.deps.Outbox, rt.cfg.Version, rt.deps.Logger)
	router.Get("/health", healthHandler.Health)
	router.Get("/ready", healthHandler.Ready)
	if rt.deps.Collector != nil {
		router.Handle("/metrics", rt.deps.Collector.Handler())
	}

	// API v1 routes (legacy, deprecated). Pinned clients still call the
	// flat paths, so v1 serves them instead of redirecting.
	router.Mount("/api/v1", v1.NewRouter(rt.deps.CommandBus, rt.deps.QueryBus, rt.deps.Logger))

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		categoryHandler := handlers.NewCategoryHandler(rt.deps.CommandBus, rt.deps.QueryBus, rt.deps.Logger)
		similarityHandler := handlers.NewSimilarityHandler(rt.deps.CommandBus, rt.deps.QueryBus, rt.deps.BulkLink, rt.deps.Pruner, rt.deps.Logger)

		// Category endpoints
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categoryHandler.CreateCategory)
			r.Get("/", categoryHandler.ListCategories)
			r.Get("/tree", categoryHandler.GetTree)
			r.Get("/roots", categoryHandler.GetRoots)
			r.Get("/{categoryID}", categoryHandler.GetCategory)
			r.Put("/{categoryID}", categoryHandler.UpdateCategory)
			r.Delete("/{categoryID}", categoryHandler.DeleteCategory)
			r.Put("/{categoryID}/parent", categoryHandler.MoveCategory)
			r.Get("/{categoryID}/children", categoryHandler.GetChildren)
			r.Get("/{categoryID}/ancestors", categoryHandler.GetAncestors)
			r.Get("/{categoryID}/descendants", categoryHandler.GetDescendants)
			r.Get("/{categoryID}/similar", similarityHandler.GetSimilar)
		})

		// Similarity endpoints
		r.Route("/similarities", func(r chi.Router) {
			r.Post("/", similarityHandler.LinkCategories)
			r.Delete("/", similarityHandler.UnlinkCategories)
			r.Post("/bulk", similarityHandler.BulkLinkCategories)
			r.Post("/prune", similarityHandler.PruneOrphanEdges)
			r.Get("/by-category/{categoryID}", similarityHandler.ListSimilarities)
		})

		// Analysis endpoints. These scan the full catalog, so a breaker
		// sheds them first when the store degrades.
		r.Route("/analysis", func(r chi.Router) {
			r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("analysis"), rt.deps.Logger))

			analysisHandler := handlers.NewAnalysisHandler(rt.deps.QueryBus, rt.deps.Logger)
			r.Get("/stats", analysisHandler.GetStats)
			r.Get("/islands", analysisHandler.GetIslands)
			r.Get("/diameter", analysisHandler.GetDiameter)
			r.Get("/shortest-path", analysisHandler.GetShortestPath)
			r.Get("/report", analysisHandler.GetReport)
		})
	})

	return router
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.Contains(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Deprecation-Date", "2025-06-01")
			w.Header().Set("X-API-Sunset-Date", "2025-12-01")
		}

		next.ServeHTTP(w, r)
	})
}
