package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/cmdstream/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// SpliceMetrics holds the instruments recorded by the splice engine.
// A nil *SpliceMetrics records nothing.
type SpliceMetrics struct {
	itemsAdded    metric.Int64Counter
	itemsEnded    metric.Int64Counter
	errorTotal    metric.Int64Counter
	bytesTotal    metric.Int64Counter
	drainDuration metric.Float64Histogram
	queueDepth    metric.Int64UpDownCounter
}

// NewSpliceMetrics creates metric instruments on the given meter.
func NewSpliceMetrics(meter metric.Meter) (*SpliceMetrics, error) {
	itemsAdded, err := meter.Int64Counter("splice.items.added",
		metric.WithDescription("Items accepted into the queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating splice.items.added counter: %w", err)
	}

	itemsEnded, err := meter.Int64Counter("splice.items.ended",
		metric.WithDescription("Items fully drained into the process"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating splice.items.ended counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("splice.errors",
		metric.WithDescription("Items that failed to resolve or drain, by stage and kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating splice.errors counter: %w", err)
	}

	bytesTotal, err := meter.Int64Counter("splice.bytes",
		metric.WithDescription("Bytes written to the process input"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating splice.bytes counter: %w", err)
	}

	drainDuration, err := meter.Float64Histogram("splice.drain.duration",
		metric.WithDescription("Time spent draining one item in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating splice.drain.duration histogram: %w", err)
	}

	queueDepth, err := meter.Int64UpDownCounter("splice.queue.depth",
		metric.WithDescription("Items waiting in the queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating splice.queue.depth gauge: %w", err)
	}

	return &SpliceMetrics{
		itemsAdded:    itemsAdded,
		itemsEnded:    itemsEnded,
		errorTotal:    errorTotal,
		bytesTotal:    bytesTotal,
		drainDuration: drainDuration,
		queueDepth:    queueDepth,
	}, nil
}

// RecordAdded counts an accepted item and grows the queue depth.
func (m *SpliceMetrics) RecordAdded(ctx context.Context) {
	if m == nil {
		return
	}
	m.itemsAdded.Add(ctx, 1)
	m.queueDepth.Add(ctx, 1)
}

// RecordDequeued shrinks the queue depth when an item becomes active.
func (m *SpliceMetrics) RecordDequeued(ctx context.Context) {
	if m == nil {
		return
	}
	m.queueDepth.Add(ctx, -1)
}

// RecordEnded records a fully drained item.
func (m *SpliceMetrics) RecordEnded(ctx context.Context, kind string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.itemsEnded.Add(ctx, 1, attrs)
	m.bytesTotal.Add(ctx, bytes, attrs)
	m.drainDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordError records an item that failed at stage ("resolve" or "stream").
// Bytes already written before a stream failure are still counted.
func (m *SpliceMetrics) RecordError(ctx context.Context, stage, kind string, bytes int64) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("kind", kind),
	))
	if bytes > 0 {
		m.bytesTotal.Add(ctx, bytes, metric.WithAttributes(attribute.String("kind", kind)))
	}
}
