package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/bryanwahyu/neuroscan/internal/logger"
)

// InitTracer installs an OTLP HTTP exporter when enabled.
// Returns a shutdown function that should be called on application exit.
func InitTracer(enabled bool, endpoint, service string, log logger.ILogger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !enabled {
		log.Info("tracer", "tracing disabled", nil)
		return noop
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("tracer", "failed to create OTLP exporter, tracing disabled", map[string]interface{}{"error": err})
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(service),
		)),
	)
	otel.SetTracerProvider(tp)
	log.Info("tracer", "tracer initialized", map[string]interface{}{"endpoint": endpoint})
	return tp.Shutdown
}
