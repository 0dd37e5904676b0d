package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "breads"

type Shutdown = func(ctx context.Context) error

// Configure installs a tracer provider exporting to the given OTLP gRPC endpoint.
// With no endpoint the global no-op provider is left in place.
func Configure(ctx context.Context, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		return func(ctx context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
		)),
	)

	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func Error(s trace.Span, err error) error {
	s.RecordError(err)
	s.SetStatus(codes.Error, err.Error())

	return err
}

func Errorf(s trace.Span, format string, a ...any) error {
	return Error(s, fmt.Errorf(format, a...))
}
