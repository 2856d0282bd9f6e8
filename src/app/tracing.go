package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/Blackdeer1524/ISAMStore/src"
	"github.com/Blackdeer1524/ISAMStore/src/cfg"
)

const serviceName = "isam"

// NewTracerProvider exports spans to the configured OTLP collector. It
// returns nil when tracing is disabled.
func NewTracerProvider(ctx context.Context, c cfg.Tracing, log src.Logger) (*sdktrace.TracerProvider, error) {
	if !c.Enabled {
		return nil, nil
	}

	var client otlptrace.Client
	switch c.Protocol {
	case "grpc":
		client = otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(c.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	default:
		client = otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(c.Endpoint),
			otlptracehttp.WithInsecure(),
		)
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", c.Protocol, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	log.Infow("exporting traces", "protocol", c.Protocol, "endpoint", c.Endpoint)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
