package query

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
	"github.com/platinummonkey/apicatalog/pkg/observability"
)

// Request declares the joins of one query
type Request struct {
	Root  JoinSpec   `json:"root"`
	Joins []JoinSpec `json:"joins"`
}

// Resolution is the resolved join tree of a Request
type Resolution struct {
	Paths map[string]string `json:"paths"`
	Steps []Step            `json:"steps"`
}

// Resolver builds join trees against a catalog and records the outcome
type Resolver struct {
	Catalog *catalog.Catalog
	Metrics *observability.Metrics
	OTel    *observability.OTelMetrics
}

// NewResolver creates a resolver. metrics and otelMetrics may be nil.
func NewResolver(cat *catalog.Catalog, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Resolver {
	return &Resolver{Catalog: cat, Metrics: metrics, OTel: otelMetrics}
}

// Resolve validates req and returns the full path of every alias
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	ctx, span := observability.Tracer().Start(ctx, "query.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("query.root", req.Root.Kind),
		attribute.Int("query.joins", len(req.Joins)),
	)

	tree, err := BuildTree(r.Catalog, req.Root, req.Joins)
	r.record(ctx, len(req.Joins)+1, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid join")
		observability.FromContext(ctx).WithError(err).Debug("join tree rejected")
		return nil, err
	}

	steps := tree.Plan()
	paths := make(map[string]string, len(steps))
	for _, s := range steps {
		paths[s.Alias] = s.FullPath
	}
	return &Resolution{Paths: paths, Steps: steps}, nil
}

func (r *Resolver) record(ctx context.Context, nodes int, err error) {
	r.OTel.RecordJoinResolution(ctx, nodes, err)
	if r.Metrics == nil {
		return
	}
	status := "ok"
	if errors.Is(err, ErrInvalidJoin) {
		status = "invalid"
	} else if err != nil {
		status = "error"
	}
	r.Metrics.JoinResolutionsTotal.WithLabelValues(status).Inc()
}
