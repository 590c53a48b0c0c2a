package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/salesqa/salesqa/internal/config"
)

const tracerName = "github.com/salesqa/salesqa"

// SetupTracing installs the global tracer provider. Spans are exported to
// writer only when tracing to stdout is enabled; otherwise they are recorded
// and dropped. The returned function flushes and stops the provider.
func SetupTracing(cfg config.Config, writer io.Writer) (func(context.Context) error, error) {
	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.Service.Name),
			attribute.String("deployment.environment", string(cfg.Profile)),
		)),
	}
	if cfg.Observability.TraceStdout {
		if writer == nil {
			writer = io.Discard
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(writer))
		if err != nil {
			return nil, err
		}
		options = append(options, sdktrace.WithBatcher(exporter))
	}
	provider := sdktrace.NewTracerProvider(options...)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// TraceIDFromSpan returns the active otel trace id, or "" when ctx carries no
// sampled span.
func TraceIDFromSpan(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return ""
	}
	return spanCtx.TraceID().String()
}
