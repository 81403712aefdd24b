package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds the OpenTelemetry instruments recorded next to the
// Prometheus ones when an OTLP collector is configured
type OTelMetrics struct {
	compilations     metric.Int64Counter
	compileDuration  metric.Float64Histogram
	schemaVariants   metric.Int64Histogram
	joinResolutions  metric.Int64Counter
	storageOps       metric.Int64Counter
	storageDuration  metric.Float64Histogram
	descriptionBytes metric.Int64Histogram
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsFrom(otel.GetMeterProvider())
}

// NewOTelMetricsFrom creates the instruments on provider
func NewOTelMetricsFrom(provider metric.MeterProvider) (*OTelMetrics, error) {
	meter := provider.Meter(InstrumentationName)

	m := &OTelMetrics{}
	var err error

	m.compilations, err = meter.Int64Counter(
		"apicatalog.compilations",
		metric.WithDescription("Description compilations"),
		metric.WithUnit("{compilation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compilations counter: %w", err)
	}

	m.compileDuration, err = meter.Float64Histogram(
		"apicatalog.compilation.duration",
		metric.WithDescription("Description compilation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compilation duration histogram: %w", err)
	}

	m.schemaVariants, err = meter.Int64Histogram(
		"apicatalog.schema.variants",
		metric.WithDescription("Largest schema variant set per compilation"),
		metric.WithUnit("{variant}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema variants histogram: %w", err)
	}

	m.joinResolutions, err = meter.Int64Counter(
		"apicatalog.join.resolutions",
		metric.WithDescription("Join tree resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create join resolutions counter: %w", err)
	}

	m.storageOps, err = meter.Int64Counter(
		"apicatalog.storage.operations",
		metric.WithDescription("Storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage operations counter: %w", err)
	}

	m.storageDuration, err = meter.Float64Histogram(
		"apicatalog.storage.duration",
		metric.WithDescription("Storage operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage duration histogram: %w", err)
	}

	m.descriptionBytes, err = meter.Int64Histogram(
		"apicatalog.description.size",
		metric.WithDescription("Size of compiled input descriptions"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create description size histogram: %w", err)
	}

	return m, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "error")
	}
	return attribute.String("outcome", "ok")
}

// RecordCompilation records one compilation of a description of size bytes
func (m *OTelMetrics) RecordCompilation(ctx context.Context, size int, largestSet int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(outcome(err))
	m.compilations.Add(ctx, 1, attrs)
	m.compileDuration.Record(ctx, duration.Seconds(), attrs)
	if size > 0 {
		m.descriptionBytes.Record(ctx, int64(size), attrs)
	}
	if err == nil {
		m.schemaVariants.Record(ctx, int64(largestSet))
	}
}

// RecordJoinResolution records one join tree resolution
func (m *OTelMetrics) RecordJoinResolution(ctx context.Context, nodes int, err error) {
	if m == nil {
		return
	}
	m.joinResolutions.Add(ctx, 1, metric.WithAttributes(outcome(err), attribute.Int("nodes", nodes)))
}

// RecordStorageOperation records a storage call against backend
func (m *OTelMetrics) RecordStorageOperation(ctx context.Context, operation, backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("storage.operation", operation),
		attribute.String("storage.backend", backend),
		outcome(err),
	)
	m.storageOps.Add(ctx, 1, attrs)
	m.storageDuration.Record(ctx, duration.Seconds(), attrs)
}
