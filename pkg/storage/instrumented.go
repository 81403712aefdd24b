package storage

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/apicatalog/pkg/observability"
)

// Instrumented wraps a Store with tracing spans, Prometheus metrics and OTel
// instruments labelled with the backend name
type Instrumented struct {
	next    Store
	backend string
	metrics *observability.Metrics
	otel    *observability.OTelMetrics
}

// Instrument wraps next. metrics and otelMetrics may be nil.
func Instrument(next Store, backend string, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Instrumented {
	return &Instrumented{next: next, backend: backend, metrics: metrics, otel: otelMetrics}
}

// Unwrap returns the wrapped store
func (s *Instrumented) Unwrap() Store { return s.next }

func (s *Instrumented) observe(ctx context.Context, op string, id string, fn func(context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "storage."+op, trace.WithAttributes(
		attribute.String("storage.backend", s.backend),
		attribute.String("storage.operation", op),
	))
	defer span.End()
	if id != "" {
		span.SetAttributes(attribute.String("description.id", id))
	}

	start := time.Now()
	err := fn(ctx)

	// a miss is an answer, not a backend failure
	recorded := err
	if errors.Is(err, ErrNotFound) {
		recorded = nil
	}
	s.metrics.ObserveStorage(op, s.backend, start, recorded)
	s.otel.RecordStorageOperation(ctx, op, s.backend, time.Since(start), recorded)
	if recorded != nil {
		span.RecordError(recorded)
		span.SetStatus(codes.Error, op+" failed")
	}
	return err
}

// Put implements Store.Put
func (s *Instrumented) Put(ctx context.Context, d *Description) error {
	return s.observe(ctx, "put", d.ID, func(ctx context.Context) error {
		return s.next.Put(ctx, d)
	})
}

// Get implements Store.Get
func (s *Instrumented) Get(ctx context.Context, id string) (*Description, error) {
	var d *Description
	err := s.observe(ctx, "get", id, func(ctx context.Context) error {
		var err error
		d, err = s.next.Get(ctx, id)
		return err
	})
	return d, err
}

// List implements Store.List
func (s *Instrumented) List(ctx context.Context, limit, offset int) ([]*Description, error) {
	var list []*Description
	err := s.observe(ctx, "list", "", func(ctx context.Context) error {
		var err error
		list, err = s.next.List(ctx, limit, offset)
		return err
	})
	return list, err
}

// Delete implements Store.Delete
func (s *Instrumented) Delete(ctx context.Context, id string) error {
	return s.observe(ctx, "delete", id, func(ctx context.Context) error {
		return s.next.Delete(ctx, id)
	})
}

// Ping implements Store.Ping
func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close implements Store.Close
func (s *Instrumented) Close() error {
	return s.next.Close()
}
