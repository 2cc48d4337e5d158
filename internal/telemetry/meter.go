package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// NewMeterProvider creates a MeterProvider exporting over OTLP/HTTP and
// installs it globally. A no-op provider is returned when metrics are
// disabled. The caller is responsible for calling Shutdown on SDK providers.
func NewMeterProvider(ctx context.Context, cfg *Config) (metric.MeterProvider, error) {
	if !cfg.metricsEnabled() {
		zap.S().Debug("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil
	}

	interval, err := cfg.Metrics.GetInterval()
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	zap.S().Infow("Metrics initialized",
		"endpoint", cfg.GetEndpoint(),
		"interval", interval,
		"insecure", cfg.Insecure)

	return mp, nil
}
