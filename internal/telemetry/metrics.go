package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RegistryMetricsMeterName is the name used for the registry metrics meter
	RegistryMetricsMeterName = "github.com/stacklok/toolhive-mime-registry/registry"

	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/stacklok/toolhive-mime-registry/sync"
)

// RegistryMetrics holds the OpenTelemetry instruments describing the registry
type RegistryMetrics struct {
	extensionsTotal   metric.Int64Gauge
	associationsTotal metric.Int64Gauge
}

// NewRegistryMetrics creates a new RegistryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegistryMetricsMeterName)

	extensionsTotal, err := meter.Int64Gauge(
		"thv_mime_extensions_total",
		metric.WithDescription("Number of extensions in the registry"),
		metric.WithUnit("{extension}"),
	)
	if err != nil {
		return nil, err
	}

	associationsTotal, err := meter.Int64Gauge(
		"thv_mime_associations_total",
		metric.WithDescription("Number of extension to media type associations in the registry"),
		metric.WithUnit("{association}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		extensionsTotal:   extensionsTotal,
		associationsTotal: associationsTotal,
	}, nil
}

// RecordRegistrySize records the current size of the registry
func (m *RegistryMetrics) RecordRegistrySize(ctx context.Context, extensions, associations int) {
	if m == nil {
		return
	}
	m.extensionsTotal.Record(ctx, int64(extensions))
	m.associationsTotal.Record(ctx, int64(associations))
}

// SyncMetrics holds the OpenTelemetry instruments for synchronization
type SyncMetrics struct {
	sourceDuration    metric.Float64Histogram
	associationsAdded metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	sourceDuration, err := meter.Float64Histogram(
		"thv_mime_sync_duration_seconds",
		metric.WithDescription("Duration of the probe and fetch of one source in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	associationsAdded, err := meter.Int64Counter(
		"thv_mime_associations_added_total",
		metric.WithDescription("Number of associations added by synchronization"),
		metric.WithUnit("{association}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		sourceDuration:    sourceDuration,
		associationsAdded: associationsAdded,
	}, nil
}

// RecordSourceSync records how long a source took and how its cycle ended
func (m *SyncMetrics) RecordSourceSync(ctx context.Context, source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	}
	m.sourceDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAssociationsAdded records associations a source contributed to a cycle
func (m *SyncMetrics) RecordAssociationsAdded(ctx context.Context, source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.associationsAdded.Add(ctx, int64(count), metric.WithAttributes(attribute.String("source", source)))
}
