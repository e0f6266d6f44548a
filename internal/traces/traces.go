// Package traces exports one span per scored attempt over OTLP/gRPC.
//
// Spans carry the user and attempt IDs, the risk score and the review flag,
// so a slow or failed scoring run can be matched to its report. With no
// collector endpoint configured the global no-op provider stays in place and
// StartSpan costs almost nothing.
package traces

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName  = "github.com/mbd888/trustscore"
	serviceName = "trustscore"
)

// Init installs a batching OTLP tracer provider for otlpEndpoint and returns
// its shutdown func. An empty endpoint leaves tracing off.
func Init(ctx context.Context, otlpEndpoint, version string, logger *slog.Logger) (func(context.Context) error, error) {
	if otlpEndpoint == "" {
		logger.Info("tracing disabled", "reason", "no OTLP endpoint")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", "endpoint", otlpEndpoint, "service", serviceName)
	return tp.Shutdown, nil
}

// StartSpan opens a span named name under ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// UserID tags the user whose trust is being updated.
func UserID(id string) attribute.KeyValue {
	return attribute.String("user.id", id)
}

// AttemptID tags the scored attempt. Empty for anonymous scoring calls.
func AttemptID(id string) attribute.KeyValue {
	return attribute.String("attempt.id", id)
}

// RiskScore tags the clamped risk score.
func RiskScore(score float64) attribute.KeyValue {
	return attribute.Float64("risk.score", score)
}

// NeedsReview tags whether the report was flagged for a human audit.
func NeedsReview(review bool) attribute.KeyValue {
	return attribute.Bool("report.needs_review", review)
}
