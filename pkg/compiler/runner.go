package compiler

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/refs"
)

// Result is the outcome of an instrumented compilation
type Result struct {
	Compiled *document.Object
	Stats    Stats
	Duration time.Duration
}

// Runner compiles descriptions with logging, metrics and tracing. A Runner
// is safe for concurrent use; each Run gets its own Compiler.
type Runner struct {
	Limits  Limits
	Logger  *observability.Logger
	Metrics *observability.Metrics
	OTel    *observability.OTelMetrics
}

// NewRunner creates a runner with the default limits. metrics and otelMetrics
// may be nil.
func NewRunner(logger *observability.Logger, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Runner {
	return &Runner{
		Limits:  DefaultLimits(),
		Logger:  logger,
		Metrics: metrics,
		OTel:    otelMetrics,
	}
}

// Run decodes and compiles raw. A panic inside the compiler is returned as an
// error instead of taking the process down.
func (r *Runner) Run(ctx context.Context, raw []byte) (res *Result, err error) {
	ctx, span := observability.Tracer().Start(ctx, "compiler.Compile")
	defer span.End()
	span.SetAttributes(attribute.Int("description.bytes", len(raw)))

	logger := observability.UpdateLoggerWithTraceContext(ctx, r.logger(ctx))
	start := time.Now()

	defer func() {
		if perr := observability.MustRecover(recover()); perr != nil {
			logger.WithField("panic", perr.Error()).Error("compiler panicked")
			res, err = nil, perr
		}
		elapsed := time.Since(start)
		var stats Stats
		if res != nil {
			stats = res.Stats
		}
		r.record(ctx, len(raw), stats, elapsed, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorKind(err))
			return
		}
		span.SetAttributes(
			attribute.Int("compile.requests", stats.Requests),
			attribute.Int("compile.variants", stats.Variants),
			attribute.Int("compile.largest_set", stats.LargestSet),
		)
	}()

	doc, err := document.Decode(raw)
	if err != nil {
		err = decodeError(err)
		logger.WithError(err).
			WithCompile(observability.CompileFields{Kind: ErrorKind(err), Bytes: len(raw), Duration: time.Since(start)}).
			Warn("description could not be decoded")
		return nil, err
	}

	c := New(doc, r.Limits)
	compiled, err := c.Compile()
	if err != nil {
		logger.WithError(err).
			WithCompile(observability.CompileFields{Kind: ErrorKind(err), Bytes: len(raw), Duration: time.Since(start)}).
			Warn("description compilation failed")
		return nil, err
	}

	res = &Result{Compiled: compiled, Stats: c.Stats(), Duration: time.Since(start)}
	logger.WithCompile(res.logFields(len(raw))).Debug("description compiled")
	return res, nil
}

func (res *Result) logFields(size int) observability.CompileFields {
	return observability.CompileFields{
		Bytes:      size,
		Requests:   res.Stats.Requests,
		Schemas:    res.Stats.Schemas,
		Variants:   res.Stats.Variants,
		LargestSet: res.Stats.LargestSet,
		Duration:   res.Duration,
	}
}

func (r *Runner) logger(ctx context.Context) *observability.Logger {
	if r.Logger != nil {
		return observability.FromContext(observability.WithLogger(ctx, r.Logger))
	}
	return observability.FromContext(ctx)
}

func (r *Runner) record(ctx context.Context, size int, stats Stats, elapsed time.Duration, err error) {
	r.OTel.RecordCompilation(ctx, size, stats.LargestSet, elapsed, err)
	if r.Metrics == nil {
		return
	}
	r.Metrics.CompilationDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.Metrics.CompilationTotal.WithLabelValues("error").Inc()
		r.Metrics.CompilationErrorsTotal.WithLabelValues(ErrorKind(err)).Inc()
		return
	}
	r.Metrics.CompilationTotal.WithLabelValues("ok").Inc()
	r.Metrics.CompiledRequests.Observe(float64(stats.Requests))
	r.Metrics.SchemaVariants.Observe(float64(stats.LargestSet))
}

// ErrorKind names the failure class of a compile error, for metrics labels
// and API responses
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedDescription):
		return "malformed_description"
	case errors.Is(err, ErrTooComplex):
		return "too_complex"
	case errors.Is(err, refs.ErrReferenceCycle):
		return "reference_cycle"
	case errors.Is(err, refs.ErrBrokenReference):
		return "broken_reference"
	case errors.Is(err, refs.ErrUnsupportedReference):
		return "unsupported_reference"
	default:
		return "internal"
	}
}
