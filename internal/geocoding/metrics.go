package geocoding

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/parkwise/parkwise/internal/geocoding"

// providerMetrics holds instruments for geocoder lookups.
type providerMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

func newProviderMetrics() (*providerMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &providerMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}, nil
}

func (m *providerMetrics) recordRequest(ctx context.Context, provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", "geocode"),
		attribute.Bool("error", err != nil),
	)
	m.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.requestTotal.Add(ctx, 1, attrs)
}

func (m *providerMetrics) recordCache(ctx context.Context, provider string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", "geocode"),
	)
	if hit {
		m.cacheHits.Add(ctx, 1, attrs)
		return
	}
	m.cacheMisses.Add(ctx, 1, attrs)
}
