// Package telemetry adapts OpenTelemetry tracing to the core.Telemetry
// interface so store operations can be traced without core importing otel.
// It is optional wiring: leave it out and the store runs on the no-op
// implementation.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/amorimbar/barpos/core"
)

// OTel implements core.Telemetry over an OpenTelemetry tracer.
type OTel struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates an OTel instance exporting spans to stderr. When the
// OTEL_SDK_DISABLED environment variable is "true", spans go to whatever
// global provider is installed (a no-op by default).
func New(serviceName string) (*OTel, error) {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return &OTel{tracer: otel.Tracer(serviceName)}, nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &OTel{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}, nil
}

// StartSpan starts a span named after the store operation.
func (o *OTel) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := o.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric is a no-op; standing meters are out of scope for a
// single-venue deployment and traces carry enough to debug an operation.
func (o *OTel) RecordMetric(name string, value float64, labels map[string]string) {}

// Shutdown flushes pending spans.
func (o *OTel) Shutdown(ctx context.Context) error {
	if o.provider == nil {
		return nil
	}
	return o.provider.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

var _ core.Telemetry = (*OTel)(nil)
