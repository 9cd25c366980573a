package observability

import (
	"context"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// InitTracerProvider initializes OpenTelemetry tracing with stdout exporter
func InitTracerProvider(ctx context.Context, logger *zap.Logger) (*trace.TracerProvider, error) {
	// Create stdout exporter for development (swap to Jaeger for production)
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Error("failed to create trace exporter", zap.Error(err))
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	if err := tp.ForceFlush(ctx); err != nil {
		logger.Error("failed to flush traces", zap.Error(err))
	}

	return tp, nil
}

// ShutdownTracerProvider gracefully shuts down the tracer provider
func ShutdownTracerProvider(ctx context.Context, tp *trace.TracerProvider, logger *zap.Logger) {
	if err := tp.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer provider", zap.Error(err))
	}
}

// Tracer returns the workflow tracer from the given provider. A nil provider
// yields a no-op tracer so components can trace unconditionally.
func Tracer(tp *trace.TracerProvider) oteltrace.Tracer {
	if tp == nil {
		return noop.NewTracerProvider().Tracer("convertclient")
	}
	return tp.Tracer("convertclient")
}
