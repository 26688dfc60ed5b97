// Package tracing sets up the OpenTelemetry tracer provider used for request
// and shutdown spans.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const dialTimeout = 3 * time.Second

type Options struct {
	// Endpoint of the OTLP gRPC collector; spans are not exported when empty
	Endpoint string
	Insecure bool
	Sample   float64
	Service  string
	Version  string
}

// Provider owns the SDK tracer provider and flushes it on Shutdown.
type Provider struct {
	logger     *slog.Logger
	tp         *sdktrace.TracerProvider
	inShutdown atomic.Bool
}

// New creates the provider and installs it as the global one, together with
// the W3C trace context and baggage propagators.
func New(ctx context.Context, logger *slog.Logger, o Options) (*Provider, error) {
	var tpOpts []sdktrace.TracerProviderOption

	if o.Endpoint != "" {
		expOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(o.Endpoint),
		}
		if o.Insecure {
			expOpts = append(expOpts, otlptracegrpc.WithInsecure())
		}

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		exp, err := otlptracegrpc.New(dialCtx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}

		res, err := resource.New(ctx,
			resource.WithFromEnv(),
			resource.WithProcess(),
			resource.WithHost(),
			resource.WithAttributes(
				semconv.ServiceNameKey.String(o.Service),
				semconv.ServiceVersionKey.String(o.Version),
			),
		)
		if err != nil {
			logger.WarnContext(ctx, "partial trace resource", "reason", err)
		}

		tpOpts = append(tpOpts,
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.Sample))),
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logger.InfoContext(ctx, "tracing initialized", "exporting", o.Endpoint != "", "sample", o.Sample)

	return &Provider{logger: logger, tp: tp}, nil
}

// Name returns the name of the tracing component
func (p *Provider) Name() string {
	return "tracer-provider"
}

// Start is a no-op; the provider is live from New.
func (p *Provider) Start(context.Context) error {
	return nil
}

// TracerProvider returns the provider for explicit injection.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	p.logger.InfoContext(ctx, "tracer provider flushed")

	return nil
}
