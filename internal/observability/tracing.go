package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the engine's tracer. Pipeline stages start spans on it; with no
// provider installed (InitTracing never called) it is the global no-op
// tracer, so instrumentation is always safe to call.
var Tracer = otel.Tracer("rulecore/engine")

// InitTracing installs a stdout span exporter as the global trace provider,
// for local inspection and tests. Production deployments that need a real
// collector should call otel.SetTracerProvider with their own provider
// before the engine starts; InitTracing is an opt-in convenience, not a
// requirement.
func InitTracing(ctx context.Context, serviceVersion string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("rulecore"),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("rulecore/engine")

	return provider.Shutdown, nil
}

// StartEvaluationSpan starts the root span for one evaluate_rules call.
func StartEvaluationSpan(ctx context.Context, userID, projectID string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "rules.evaluate",
		trace.WithAttributes(
			attribute.String("rules.user_id", userID),
			attribute.String("rules.project_id", projectID),
		),
	)
}

// StartStageSpan starts a child span named "rules."+stage for one pipeline
// stage. The engine starts stage spans for gather and evaluate_rule.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "rules."+stage)
}

// RecordRuleOutcome annotates span with one rule's evaluation outcome.
func RecordRuleOutcome(span trace.Span, ruleName string, matched bool, action string) {
	span.SetAttributes(
		attribute.String("rule.name", ruleName),
		attribute.Bool("rule.matched", matched),
		attribute.String("rule.action", action),
	)
}
