package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the session core
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Session metrics
	LoadsTotal     prometheus.Counter
	LoadFailures   prometheus.Counter
	LoadsDiscarded prometheus.Counter
	LayoutDuration *prometheus.HistogramVec
	SearchQueries  prometheus.Counter

	// Cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
}

// NewCollector creates a metrics collector with a private registry so
// independent sessions (and tests) never collide on registration
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_loads_total",
			Help:      "Total number of graph snapshot loads",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_load_failures_total",
			Help:      "Total number of failed graph loads",
		}),
		LoadsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_loads_discarded_total",
			Help:      "Stale load results discarded by the generation guard",
		}),
		LayoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Layout computation duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"mode"},
		),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Total number of search queries",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_cache_hits_total",
			Help:      "Entity cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_cache_misses_total",
			Help:      "Entity cache misses",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_cache_evictions_total",
			Help:      "Entity cache evictions",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.LoadsTotal,
		c.LoadFailures,
		c.LoadsDiscarded,
		c.LayoutDuration,
		c.SearchQueries,
		c.CacheHits,
		c.CacheMisses,
		c.CacheEvictions,
	)

	return c
}

// ObserveLayout records a layout pass
func (c *Collector) ObserveLayout(mode string, d time.Duration) {
	c.LayoutDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Handler returns the /metrics endpoint for this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
