// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// continuous profiling for the storefront.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// flushTimeout bounds each provider's final export on shutdown
const flushTimeout = 10 * time.Second

// Config holds telemetry configuration shared by every signal.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	Insecure          bool
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	MetricsEnabled    bool
	LogsEnabled       bool
	ExportInterval    time.Duration // Default: 60s
}

// newResource describes this process to the collector
func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// flushable is implemented by the SDK trace, metric and log providers
type flushable interface {
	Shutdown(ctx context.Context) error
}

// shutdownProvider flushes p within flushTimeout. A nil provider means the
// signal was never exported.
func shutdownProvider(ctx context.Context, signal string, p flushable) error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}
