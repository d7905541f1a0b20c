package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
)

// Process roles reported on every span.
const (
	RoleAPI    = "api"
	RoleWorker = "worker"
)

// InitTracer installs an OTLP/gRPC tracer provider for one process of the
// backend. The collector endpoint comes from OTEL_EXPORTER_OTLP_ENDPOINT. The
// returned function flushes pending spans and shuts the provider down.
func InitTracer(ctx context.Context, cfg *config.Config, role string) (func(context.Context), error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.OTELServiceName),
			semconv.ServiceInstanceIDKey.String(uuid.NewString()),
			attribute.String("lms.process.role", role),
			attribute.String("lms.ai.provider", cfg.AIProvider),
			attribute.Bool("lms.search.enabled", cfg.SearchEnabled),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.OTELSampleRatio))),
	)
	otel.SetTracerProvider(tp)

	logger.Info("Tracing enabled", "service", cfg.OTELServiceName, "role", role, "sample_ratio", cfg.OTELSampleRatio)

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Failed to flush traces", "error", err)
		}
	}, nil
}
