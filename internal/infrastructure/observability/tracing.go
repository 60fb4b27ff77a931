package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"activegraph/internal/config"
	"activegraph/internal/errors"
)

// TracerProvider owns the tracer handed to graphs.
type TracerProvider struct {
	provider *sdktrace.TracerProvider // nil when tracing is disabled
	tracer   trace.Tracer
}

// InitTracing builds an OTLP/gRPC exporting provider and installs it
// globally. When tracing is disabled the returned provider hands out a
// no-op tracer.
func InitTracing(ctx context.Context, cfg config.Tracing, env config.Environment) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName)}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, errors.Unavailable(errors.CodeInternalError.String(), "failed to create trace exporter").
			WithResource("tracing").
			WithCause(err).
			Build()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment", string(env)),
		),
	)
	if err != nil {
		return nil, errors.Internal(errors.CodeInternalError.String(), "failed to create trace resource").
			WithResource("tracing").
			WithCause(err).
			Build()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg, env)),
	)
	return NewTracerProvider(tp, cfg.ServiceName), nil
}

// NewTracerProvider wraps an SDK provider and installs it globally.
func NewTracerProvider(tp *sdktrace.TracerProvider, serviceName string) *TracerProvider {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &TracerProvider{provider: tp, tracer: tp.Tracer(serviceName)}
}

// newSampler samples everything in development and the configured ratio
// elsewhere, following the parent's decision when there is one.
func newSampler(cfg config.Tracing, env config.Environment) sdktrace.Sampler {
	if env == config.Development {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))
}

// Tracer returns the tracer for graph mutations.
func (tp *TracerProvider) Tracer() trace.Tracer { return tp.tracer }

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}
