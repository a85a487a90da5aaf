package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"devflow/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts every devflow span. InitTracing replaces it.
var Tracer trace.Tracer = otel.Tracer("devflow-api")

// Span attribute keys shared by the HTTP and service layers.
const (
	AttrActorID   = attribute.Key("devflow.actor_id")
	AttrErrorCode = attribute.Key("devflow.error_code")
	AttrRetryable = attribute.Key("devflow.retryable")
)

// TracingConfig holds configuration for initializing the tracer.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string // "stdout" or "otlp"
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs the global tracer provider and returns its shutdown
// function. When tracing is disabled spans go to the no-op provider.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "otlp":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Environment != "production" {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(context.Background(), opts...)
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
}

// samplerFor follows the parent decision and samples root spans at ratio.
// A zero ratio means "not configured" and samples everything.
func samplerFor(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartOperation starts an internal span for a service operation and tags it
// with the acting user. The returned func ends the span; a failed operation
// carries its AppError code so aborted transactions can be told apart from
// rejected requests.
func StartOperation(ctx context.Context, name string, actorID uint) (context.Context, func(err error)) {
	ctx, span := Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrActorID.Int64(int64(actorID))),
	)
	return ctx, func(err error) {
		if err != nil {
			RecordError(span, err)
		}
		span.End()
	}
}

// RecordError marks span failed. Business rejections (not found, forbidden,
// validation) keep an unset status; only conflicts and internal failures
// flag the span as an error.
func RecordError(span trace.Span, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal")
		return
	}

	span.SetAttributes(
		AttrErrorCode.String(appErr.Code),
		AttrRetryable.Bool(appErr.Retryable()),
	)
	switch appErr.Code {
	case models.CodeConflict, models.CodeInternal:
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Code)
	}
}
