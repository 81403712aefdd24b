// Package observability provides structured logging, Prometheus and
// OpenTelemetry metrics, tracing setup, health checks and graceful shutdown
// for the catalog service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.ParseLogLevel("debug"), os.Stdout)
//	logger.WithField("description_id", id).Info("description stored")
//
// Handlers pick up the request-scoped logger with FromContext, which adds the
// request and description IDs found in the context.
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.CompilationTotal.WithLabelValues("ok").Inc()
//	observability.RegisterMetricsEndpoint(router, registry)
//
// # Tracing
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "apicatalog",
//		Insecure:    true,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// Compile and join spans are started from Tracer().
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.Register("store", store, true)
//	checker.Register("cache", cache, false)
//	observability.RegisterHealthRoutes(router, checker)
package observability
