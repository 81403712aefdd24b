package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/apicatalog/pkg/api"
	"github.com/platinummonkey/apicatalog/pkg/catalog"
	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/config"
	"github.com/platinummonkey/apicatalog/pkg/middleware"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/query"
	"github.com/platinummonkey/apicatalog/pkg/storage/backend"
	"github.com/platinummonkey/apicatalog/pkg/storage/cache"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := observability.WithLogger(context.Background(), logger)

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}
	var otelMetrics *observability.OTelMetrics
	if providers != nil {
		if otelMetrics, err = observability.NewOTelMetrics(); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	store, err := backend.Open(ctx, cfg.Storage, backend.Deps{Logger: logger, Metrics: metrics, OTel: otelMetrics})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	health := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion)
	store.RegisterHealth(health)

	limiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}

	cat := catalog.Default()
	runner := compiler.NewRunner(logger, metrics, otelMetrics)
	runner.Limits = cfg.Compiler.Limits()

	server := api.NewServer(api.Options{
		Store:        store.Store,
		Catalog:      cat,
		Runner:       runner,
		Resolver:     query.NewResolver(cat, metrics, otelMetrics),
		Logger:       logger,
		Metrics:      metrics,
		Limiter:      limiter,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CacheSize:    cfg.Compiler.CacheSize,
		CacheTTL:     cfg.Compiler.CacheTTL,
	})

	var handler http.Handler = server
	if providers != nil {
		handler = otelhttp.NewHandler(server, "apicatalog",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Probes and metrics are served on their own port
	opsRouter := mux.NewRouter()
	observability.RegisterHealthRoutes(opsRouter, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsRouter, registry)
	}
	opsServer := &http.Server{Addr: cfg.Server.HealthAddr(), Handler: opsRouter}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.RegisterShutdownFunc(observability.Closer(store.Close))
	shutdown.RegisterShutdownFunc(opsServer.Shutdown)

	errCh := make(chan error, 2)
	go func() {
		defer observability.RecoverPanic(logger, "health server")
		logger.WithField("addr", opsServer.Addr).Info("Starting health and metrics server")
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		defer observability.RecoverPanic(logger, "api server")
		logger.WithField("addr", httpServer.Addr).Info("Starting apicatalog server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := <-errCh; err != nil {
			logger.WithError(err).Error("Server failed")
			cancel()
		}
	}()
	return shutdown.WaitForShutdown(waitCtx)
}

// newLimiter shares the limit through Redis when one is configured and keeps
// it in process otherwise. A disabled limit returns nil.
func newLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, error) {
	rl := cfg.Server.RateLimit()
	if !rl.Enabled() {
		return nil, nil
	}
	if cfg.Storage.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect rate limiter to redis: %w", err)
		}
		return middleware.NewRedisLimiter(client, rl, ""), nil
	}
	limiter := middleware.NewMemoryLimiter(rl)
	limiter.StartCleanup(ctx)
	return limiter, nil
}
