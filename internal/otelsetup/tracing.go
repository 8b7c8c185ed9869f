package otelsetup

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"google.golang.org/grpc/credentials"
)

// BuildTraceProvider wires the configured exporters. Returns (nil, nil)
// when no export is configured.
func (o *Options) BuildTraceProvider(ctx context.Context) (*trace.TracerProvider, error) {
	var providerOpts []trace.TracerProviderOption

	if o.Endpoint != "" {
		grpcOptions := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(o.Endpoint),
		}

		if o.Insecure {
			grpcOptions = append(grpcOptions, otlptracegrpc.WithInsecure())
		} else {
			tlsConfig, err := o.getTLSConfig()
			if err != nil {
				return nil, err
			}

			grpcOptions = append(grpcOptions, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsConfig)))
		}

		exporter, err := otlptracegrpc.New(ctx, grpcOptions...)
		if err != nil {
			return nil, err
		}

		providerOpts = append(providerOpts, trace.WithBatcher(exporter))
	}

	if o.Stdout {
		exporter, err := stdouttrace.New()
		if err != nil {
			return nil, err
		}

		providerOpts = append(providerOpts, trace.WithBatcher(exporter))
	}

	if len(providerOpts) == 0 {
		return nil, nil
	}

	providerOpts = append(providerOpts, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(o.ServiceName),
	)))

	providerOpts = append(providerOpts, trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(1))))
	provider := trace.NewTracerProvider(providerOpts...)

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
		),
	)

	return provider, nil
}
