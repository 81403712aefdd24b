package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Description compilation metrics
	CompilationTotal       *prometheus.CounterVec
	CompilationDuration    prometheus.Histogram
	CompilationErrorsTotal *prometheus.CounterVec
	CompiledRequests       prometheus.Histogram
	SchemaVariants         prometheus.Histogram

	// Join tree metrics
	JoinResolutionsTotal *prometheus.CounterVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec

	// Catalog gauges
	DescriptionsStored prometheus.Gauge
	CatalogKinds       prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apicatalog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apicatalog_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apicatalog_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "route"},
		),

		CompilationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_compilation_total",
				Help: "Total number of description compilations",
			},
			[]string{"status"},
		),
		CompilationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apicatalog_compilation_duration_seconds",
				Help:    "Description compilation duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		CompilationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_compilation_errors_total",
				Help: "Total number of failed compilations by error kind",
			},
			[]string{"error_type"},
		),
		CompiledRequests: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apicatalog_compiled_requests",
				Help:    "Request records produced per compilation",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		SchemaVariants: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apicatalog_schema_variants",
				Help:    "Largest variant set produced by a single schema per compilation",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		JoinResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_join_resolutions_total",
				Help: "Total number of join tree resolutions",
			},
			[]string{"status"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apicatalog_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apicatalog_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"limiter"},
		),

		DescriptionsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "apicatalog_descriptions_stored",
				Help: "Descriptions stored since the process started",
			},
		),
		CatalogKinds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "apicatalog_catalog_kinds",
				Help: "Entity kinds known to the catalog",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.CompilationTotal,
		m.CompilationDuration,
		m.CompilationErrorsTotal,
		m.CompiledRequests,
		m.SchemaVariants,
		m.JoinResolutionsTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RateLimitedTotal,
		m.DescriptionsStored,
		m.CatalogKinds,
	)

	return m
}

// ObserveStorage records one storage call
func (m *Metrics) ObserveStorage(operation, backend string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StorageOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
}

// ObserveCache records a cache lookup
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the route template so that IDs in the URL do not explode
// label cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics. It
// is meant to be installed with mux.Router.Use so the route template is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeLabel(r)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, route).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
