package ranking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/parkwise/parkwise/internal/ranking"

type metrics struct {
	duration   metric.Float64Histogram
	candidates metric.Int64Histogram
	defects    metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"parking.rank.duration",
		metric.WithDescription("Duration of ranking queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	candidates, err := meter.Int64Histogram(
		"parking.rank.candidates",
		metric.WithDescription("Number of spots costed per ranking query"),
		metric.WithUnit("{spot}"),
	)
	if err != nil {
		return nil, err
	}

	defects, err := meter.Int64Counter(
		"parking.rank.defects",
		metric.WithDescription("Spots excluded from ranking because of invalid tariffs"),
		metric.WithUnit("{spot}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{duration: duration, candidates: candidates, defects: defects}, nil
}

func (m *metrics) recordRank(ctx context.Context, vehicle string, candidates, defects int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("parking.vehicle", vehicle))
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.candidates.Record(ctx, int64(candidates), attrs)
	if defects > 0 {
		m.defects.Add(ctx, int64(defects), attrs)
	}
}
