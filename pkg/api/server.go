package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/httputil"
	"github.com/platinummonkey/apicatalog/pkg/middleware"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/query"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

// DefaultMaxBodyBytes limits submitted descriptions when Options leaves it unset
const DefaultMaxBodyBytes = 10 << 20

// Options configures a Server. Only Store is required.
type Options struct {
	Store    storage.Store
	Catalog  *catalog.Catalog
	Runner   *compiler.Runner
	Resolver *query.Resolver

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Health and Registry, when set, add /health and /metrics to the router
	Health   *observability.HealthChecker
	Registry *prometheus.Registry

	// Limiter, when set, rate limits the routes that compile
	Limiter middleware.Limiter

	MaxBodyBytes int64
	CacheSize    int
	CacheTTL     time.Duration
}

// Server represents our API server
type Server struct {
	store    storage.Store
	catalog  *catalog.Catalog
	runner   *compiler.Runner
	resolver *query.Resolver
	cache    *compileCache
	logger   *observability.Logger
	metrics  *observability.Metrics
	limiter  middleware.Limiter
	maxBody  int64
	router   *mux.Router
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Runner == nil {
		opts.Runner = compiler.NewRunner(opts.Logger, opts.Metrics, nil)
	}
	if opts.Resolver == nil {
		opts.Resolver = query.NewResolver(opts.Catalog, opts.Metrics, nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		store:    opts.Store,
		catalog:  opts.Catalog,
		runner:   opts.Runner,
		resolver: opts.Resolver,
		cache:    newCompileCache(opts.CacheSize, opts.CacheTTL, opts.Metrics),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		limiter:  opts.Limiter,
		maxBody:  opts.MaxBodyBytes,
		router:   mux.NewRouter(),
	}
	if s.metrics != nil {
		s.metrics.CatalogKinds.Set(float64(len(catalog.Kinds())))
	}

	s.setupRoutes()
	if opts.Health != nil {
		observability.RegisterHealthRoutes(s.router, opts.Health)
	}
	if opts.Registry != nil {
		observability.RegisterMetricsEndpoint(s.router, opts.Registry)
	}
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(s.logger),
		observability.RecoverMiddleware(s.logger),
		httputil.LoggingMiddleware,
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics))
	}
	for _, mw := range middlewares {
		s.router.Use(mux.MiddlewareFunc(mw))
	}

	// Description routes
	s.router.Handle("/descriptions", s.limited(s.createDescription)).Methods(http.MethodPost)
	s.router.HandleFunc("/descriptions", s.listDescriptions).Methods(http.MethodGet)
	s.router.HandleFunc("/descriptions/{id}", s.getDescription).Methods(http.MethodGet)
	s.router.HandleFunc("/descriptions/{id}", s.deleteDescription).Methods(http.MethodDelete)
	s.router.HandleFunc("/descriptions/{id}/compiled", s.getCompiled).Methods(http.MethodGet)

	// Dry-run compilation
	s.router.Handle("/compile", s.limited(s.compileDescription)).Methods(http.MethodPost)

	// Catalog routes
	s.router.HandleFunc("/catalog", s.getCatalog).Methods(http.MethodGet)
	s.router.HandleFunc("/catalog/{kind}", s.getCatalogKind).Methods(http.MethodGet)

	// Query support
	s.router.HandleFunc("/joins", s.resolveJoins).Methods(http.MethodPost)
	s.router.HandleFunc("/results/flatten", s.flattenResults).Methods(http.MethodPost)
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return middleware.RateLimit(s.limiter, s.logger, s.metrics)(h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}
