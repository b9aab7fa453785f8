// Package ranking answers "where should I park" queries against the spot
// catalogue.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/parkwise/parkwise/internal/geocoding"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/spot"
)

const tracerName = "github.com/parkwise/parkwise/internal/ranking"

// Query defaults and bounds.
const (
	DefaultLimit           = 5
	MaxLimit               = 25
	DefaultDurationMinutes = 60
)

// Sentinel errors for ranking operations.
var (
	// ErrAddressNotFound indicates the destination address did not geocode.
	ErrAddressNotFound = errors.New("destination address not found")
)

// Catalogue is the slice of the spot service ranking needs.
type Catalogue interface {
	Active(ctx context.Context) ([]*spot.Spot, error)
	Get(ctx context.Context, id int64) (*spot.Spot, error)
}

// Geocoder resolves destination addresses.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocoding.Result, error)
}

// Query is a ranking request. Zero values take defaults: now, 60 minutes,
// a standard vehicle and five results.
type Query struct {
	Start           time.Time
	DurationMinutes int
	Vehicle         parking.Vehicle
	Destination     *parking.Coordinate
	// Address is geocoded when Destination is nil.
	Address         string
	Limit           int
	Weights         *parking.Weights
	WalkingSpeedKmh float64
	PromotionKeys   []string
}

// Item is one ranked spot.
type Item struct {
	Spot    *spot.Spot
	Result  parking.RankedResult
	Summary parking.Summary
}

// Meta echoes the effective query.
type Meta struct {
	Start           time.Time
	DurationMinutes int
	Vehicle         parking.Vehicle
	Destination     *parking.Coordinate
	ResolvedAddress string
	UsedPromotions  []string
	Candidates      int
	Excluded        int
	Warnings        []string
}

// Result is the outcome of a ranking query.
type Result struct {
	Currency string
	Items    []Item
	Meta     Meta
}

// CostQuery prices one spot.
type CostQuery struct {
	Start           time.Time
	DurationMinutes int
	Vehicle         parking.Vehicle
	PromotionKeys   []string
}

// CostResult is the itemised cost of one spot.
type CostResult struct {
	Spot      *spot.Spot
	Start     time.Time
	End       time.Time
	Vehicle   parking.Vehicle
	Breakdown parking.CostBreakdown
}

// Config holds configuration for the ranking service.
type Config struct {
	Calculator *parking.Calculator
	Catalogue  Catalogue
	// Geocoder is optional; without it address queries are rejected.
	Geocoder Geocoder
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Service ranks catalogue spots.
type Service struct {
	calc      *parking.Calculator
	catalogue Catalogue
	geocoder  Geocoder
	logger    zerolog.Logger
	now       func() time.Time
	tracer    trace.Tracer
	metrics   *metrics
}

// NewService creates a ranking service.
func NewService(cfg Config) *Service {
	calc := cfg.Calculator
	if calc == nil {
		calc = parking.NewCalculator(parking.Config{})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	m, err := newMetrics()
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("ranking metrics disabled")
	}

	return &Service{
		calc:      calc,
		catalogue: cfg.Catalogue,
		geocoder:  cfg.Geocoder,
		logger:    cfg.Logger,
		now:       now,
		tracer:    otel.Tracer(tracerName),
		metrics:   m,
	}
}

// Location returns the zone sessions are interpreted in.
func (s *Service) Location() *time.Location {
	return s.calc.Location()
}

// Rank costs every active spot for the query and returns the best Limit.
func (s *Service) Rank(ctx context.Context, q Query) (*Result, error) {
	started := time.Now()

	if err := s.normalize(&q); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "ranking.Rank", trace.WithAttributes(
		attribute.String("parking.vehicle", string(q.Vehicle)),
		attribute.Int("parking.duration_minutes", q.DurationMinutes),
		attribute.Int("parking.limit", q.Limit),
		attribute.Bool("parking.has_destination", q.Destination != nil || q.Address != ""),
	))
	defer span.End()

	meta := Meta{
		Start:           q.Start,
		DurationMinutes: q.DurationMinutes,
		Vehicle:         q.Vehicle,
		UsedPromotions:  q.PromotionKeys,
	}

	if q.Destination == nil && q.Address != "" {
		dest, resolved, warning, err := s.resolve(ctx, q.Address)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "geocoding failed")
			return nil, err
		}
		q.Destination = dest
		meta.ResolvedAddress = resolved
		if warning != "" {
			meta.Warnings = append(meta.Warnings, warning)
		}
	}
	meta.Destination = q.Destination

	catalogue, err := s.catalogue.Active(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading catalogue failed")
		return nil, fmt.Errorf("loading catalogue: %w", err)
	}

	byID := make(map[int64]*spot.Spot, len(catalogue))
	spots := make([]parking.Spot, len(catalogue))
	for i, sp := range catalogue {
		byID[sp.ID] = sp
		spots[i] = sp.Spot
	}

	ranked, defects, err := s.calc.Rank(spots, parking.RankOptions{
		Start:           q.Start,
		DurationMinutes: q.DurationMinutes,
		Vehicle:         q.Vehicle,
		Destination:     q.Destination,
		WalkingSpeedKmh: q.WalkingSpeedKmh,
		Weights:         q.Weights,
		PromotionKeys:   q.PromotionKeys,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}

	for _, d := range defects {
		s.logger.Warn().
			Err(d.Err).
			Int64("spot_id", d.SpotID).
			Int("index", d.Index).
			Msg("excluding spot with invalid tariff from ranking")
	}

	meta.Candidates = len(spots)
	meta.Excluded = len(defects)

	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	items := make([]Item, len(ranked))
	for i, r := range ranked {
		items[i] = Item{
			Spot:    byID[r.Spot.ID],
			Result:  r,
			Summary: parking.Summarize(r, q.DurationMinutes),
		}
	}

	span.SetAttributes(
		attribute.Int("parking.candidates", len(spots)),
		attribute.Int("parking.defects", len(defects)),
		attribute.Int("parking.results", len(items)),
	)
	s.metrics.recordRank(ctx, string(q.Vehicle), len(spots), len(defects), time.Since(started))

	s.logger.Debug().
		Str("vehicle", string(q.Vehicle)).
		Int("duration_minutes", q.DurationMinutes).
		Int("candidates", len(spots)).
		Int("excluded", len(defects)).
		Int("returned", len(items)).
		Msg("ranked parking spots")

	return &Result{Currency: parking.Currency, Items: items, Meta: meta}, nil
}

// resolve geocodes address. A provider outage degrades to ranking without
// walking distance; a definite miss is an error.
func (s *Service) resolve(ctx context.Context, address string) (*parking.Coordinate, string, string, error) {
	if s.geocoder == nil {
		return nil, "", "", &parking.QueryError{Field: "address", Message: "address lookup is not available, send destination coordinates"}
	}

	res, err := s.geocoder.Geocode(ctx, address)
	switch {
	case err == nil:
		coord := res.Coordinate
		return &coord, res.DisplayName, "", nil
	case errors.Is(err, geocoding.ErrNotFound):
		return nil, "", "", fmt.Errorf("%w: %q", ErrAddressNotFound, address)
	case errors.Is(err, geocoding.ErrEmptyQuery):
		return nil, "", "", &parking.QueryError{Field: "address", Message: "must not be blank"}
	default:
		s.logger.Warn().Err(err).Str("address", address).Msg("geocoding unavailable, ranking by price only")
		return nil, "", "destination could not be resolved; results are ranked by price only", nil
	}
}

// Cost prices one active spot.
func (s *Service) Cost(ctx context.Context, spotID int64, q CostQuery) (*CostResult, error) {
	if q.Start.IsZero() {
		q.Start = s.now()
	}
	if q.Vehicle == "" {
		q.Vehicle = parking.VehicleStandard
	}
	if q.DurationMinutes == 0 {
		q.DurationMinutes = DefaultDurationMinutes
	}

	ctx, span := s.tracer.Start(ctx, "ranking.Cost", trace.WithAttributes(
		attribute.Int64("parking.spot_id", spotID),
		attribute.String("parking.vehicle", string(q.Vehicle)),
		attribute.Int("parking.duration_minutes", q.DurationMinutes),
	))
	defer span.End()

	sp, err := s.catalogue.Get(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if !sp.Active() {
		return nil, spot.ErrSpotNotFound
	}

	breakdown, err := s.calc.SpotCost(sp.Spot, q.Start, q.DurationMinutes, q.Vehicle, q.PromotionKeys)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, parking.ErrInvalidConfiguration) {
			s.logger.Error().Err(err).Int64("spot_id", spotID).Msg("stored spot has an invalid tariff")
			return nil, &spot.TariffError{SpotID: spotID, Err: err}
		}
		return nil, err
	}

	start := q.Start.In(s.calc.Location())
	return &CostResult{
		Spot:      sp,
		Start:     start,
		End:       start.Add(time.Duration(q.DurationMinutes) * time.Minute),
		Vehicle:   q.Vehicle,
		Breakdown: breakdown,
	}, nil
}

func (s *Service) normalize(q *Query) error {
	if q.Start.IsZero() {
		q.Start = s.now()
	}
	q.Start = q.Start.In(s.calc.Location())
	if q.DurationMinutes == 0 {
		q.DurationMinutes = DefaultDurationMinutes
	}
	if q.Vehicle == "" {
		q.Vehicle = parking.VehicleStandard
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return &parking.QueryError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	return nil
}
