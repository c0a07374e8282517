package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	CategoriesCreated prometheus.Counter
	CategoriesDeleted prometheus.Counter
	EdgesCreated      prometheus.Counter
	EdgesRemoved      prometheus.Counter

	// Analysis metrics
	AnalysisRuns     *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec

	// Command and query bus metrics
	BusOperations *prometheus.CounterVec
	BusDuration   *prometheus.HistogramVec

	// Repository metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace.
// It is a process-wide singleton so repeated construction in tests does not
// trip duplicate registration.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	categoriesCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_created_total",
			Help:      "Total number of categories created",
		},
	)

	categoriesDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_deleted_total",
			Help:      "Total number of categories deleted",
		},
	)

	edgesCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_edges_created_total",
			Help:      "Total number of similarity edges created",
		},
	)

	edgesRemoved := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_edges_removed_total",
			Help:      "Total number of similarity edges removed",
		},
	)

	analysisRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Total number of graph analysis runs",
		},
		[]string{"operation"},
	)

	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Graph analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	busOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_operations_total",
			Help:      "Command and query bus operations",
		},
		[]string{"metric", "type"},
	)

	busDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_operation_duration_seconds",
			Help:      "Command and query bus handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"metric", "type"},
	)

	dbOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_operations_total",
			Help:      "Total number of database operations",
		},
		[]string{"operation", "table", "status"},
	)

	dbDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Database operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		categoriesCreated,
		categoriesDeleted,
		edgesCreated,
		edgesRemoved,
		analysisRuns,
		analysisDuration,
		busOperations,
		busDuration,
		dbOperations,
		dbDuration,
		cacheHits,
		cacheMisses,
	)

	globalCollector = &Collector{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		CategoriesCreated: categoriesCreated,
		CategoriesDeleted: categoriesDeleted,
		EdgesCreated:      edgesCreated,
		EdgesRemoved:      edgesRemoved,
		AnalysisRuns:      analysisRuns,
		AnalysisDuration:  analysisDuration,
		BusOperations:     busOperations,
		BusDuration:       busDuration,
		DBOperations:      dbOperations,
		DBDuration:        dbDuration,
		CacheHits:         cacheHits,
		CacheMisses:       cacheMisses,
	}

	return globalCollector
}

// ResetForTesting resets the global collector for testing purposes
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// Handler returns the scrape endpoint for this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
