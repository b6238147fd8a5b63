// Package telemetry wires OpenTelemetry tracing for the booking API.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// StoreKey tags spans with the store backing the ledger.
const StoreKey = attribute.Key("booking.store")

// Config selects the trace exporter and describes the running service.
type Config struct {
	Endpoint       string  `env:"OTEL_ENDPOINT"`
	ServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"pulse-strength-gym"`
	ServiceVersion string  `env:"OTEL_SERVICE_VERSION" envDefault:"dev"`
	Environment    string  `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	SampleRatio    float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Validate rejects a sample ratio outside [0, 1].
func (c Config) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %v", c.SampleRatio)
	}
	return nil
}

// Resource describes this process to the collector. extra carries deployment
// details known only at startup, such as the store driver.
func Resource(ctx context.Context, cfg Config, extra ...attribute.KeyValue) (*resource.Resource, error) {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	}, extra...)
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// Setup registers a global tracer provider exporting to cfg.Endpoint.
//
// Tracing is opt-in: with no endpoint, Setup returns a no-op shutdown and the
// ledger and service spans go to the default no-op provider. Root spans are
// sampled at cfg.SampleRatio; child spans follow their parent.
func Setup(ctx context.Context, cfg Config, extra ...attribute.KeyValue) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.Endpoint == "" {
		return noop, nil
	}
	if err := cfg.Validate(); err != nil {
		return noop, err
	}

	res, err := Resource(ctx, cfg, extra...)
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
