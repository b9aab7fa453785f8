package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/api/response"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

// MaxDurationMinutes bounds a single session to two weeks.
const MaxDurationMinutes = 14 * 24 * 60

// Ranker ranks and prices catalogue spots.
type Ranker interface {
	Rank(ctx context.Context, q ranking.Query) (*ranking.Result, error)
	Cost(ctx context.Context, spotID int64, q ranking.CostQuery) (*ranking.CostResult, error)
}

// SpotReader is the read side of the spot catalogue.
type SpotReader interface {
	List(ctx context.Context, opts spot.ListOptions) (*spot.ListResult, error)
	GetBySlug(ctx context.Context, slug string) (*spot.Spot, error)
}

// ParkingHandler handles the public parking endpoints.
type ParkingHandler struct {
	ranker    Ranker
	catalogue SpotReader
	logger    zerolog.Logger
}

// NewParkingHandler creates a new ParkingHandler.
func NewParkingHandler(ranker Ranker, catalogue SpotReader, logger zerolog.Logger) *ParkingHandler {
	return &ParkingHandler{
		ranker:    ranker,
		catalogue: catalogue,
		logger:    logger,
	}
}

// Rank handles POST /v1/parking:rank - rank spots for a session.
func (h *ParkingHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req models.RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrors := validateRankRequest(&req); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	q := ranking.Query{
		Vehicle:       parking.Vehicle(req.Vehicle),
		Address:       strings.TrimSpace(req.Address),
		PromotionKeys: req.EligiblePromotions,
	}
	if req.Start != nil {
		q.Start = req.Start.Time()
	}
	if req.DurationMinutes != nil {
		q.DurationMinutes = *req.DurationMinutes
	}
	if req.Destination != nil {
		q.Destination = &parking.Coordinate{Lat: req.Destination.Lat, Lon: req.Destination.Lon}
	}
	if req.Limit != nil {
		q.Limit = *req.Limit
	}
	if req.Weights != nil {
		q.Weights = &parking.Weights{Price: req.Weights.Price, Walking: req.Weights.Walking}
	}
	if req.WalkingSpeedKmh != nil {
		q.WalkingSpeedKmh = *req.WalkingSpeedKmh
	}

	result, err := h.ranker.Rank(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toRankResponse(result, req.IncludeBreakdown))
}

// Cost handles POST /v1/parking/spots/{spotId}/cost - itemised cost of one spot.
func (h *ParkingHandler) Cost(w http.ResponseWriter, r *http.Request) {
	spotID, ok := parseSpotID(chi.URLParam(r, "spotId"))
	if !ok {
		response.NotFound(w, r, "parking spot not found")
		return
	}

	var req models.CostRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	}

	var fieldErrors []models.FieldError
	fieldErrors = validateDuration(fieldErrors, req.DurationMinutes)
	fieldErrors = validateVehicle(fieldErrors, req.Vehicle)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	q := ranking.CostQuery{
		Vehicle:       parking.Vehicle(req.Vehicle),
		PromotionKeys: req.EligiblePromotions,
	}
	if req.Start != nil {
		q.Start = req.Start.Time()
	}
	if req.DurationMinutes != nil {
		q.DurationMinutes = *req.DurationMinutes
	}

	result, err := h.ranker.Cost(r.Context(), spotID, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.CostResponse{
		Spot:      toSpotSummary(result.Spot),
		Start:     models.Timestamp(result.Start),
		End:       models.Timestamp(result.End),
		Vehicle:   string(result.Vehicle),
		Breakdown: toCostBreakdown(result.Breakdown),
	})
}

// ListSpots handles GET /v1/parking/spots - page through active spots.
func (h *ParkingHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	opts := spot.ListOptions{}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			response.BadRequest(w, r, "validation failed", []models.FieldError{{
				Field: "limit", Message: "must be a positive integer", Code: CodeOutOfRange,
			}})
			return
		}
		opts.Limit = limit
	}
	if v := r.URL.Query().Get("cursor"); v != "" {
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil || after < 0 {
			response.BadRequest(w, r, "validation failed", []models.FieldError{{
				Field: "cursor", Message: "is not a valid cursor", Code: CodeInvalidQuery,
			}})
			return
		}
		opts.AfterID = after
	}

	result, err := h.catalogue.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page := models.PagedSpots{
		Items: make([]models.SpotResponse, len(result.Items)),
		Meta:  models.PagedResponseMeta{Limit: len(result.Items)},
	}
	for i, sp := range result.Items {
		page.Items[i] = toSpotResponse(sp)
	}
	if result.NextAfterID != 0 {
		cursor := strconv.FormatInt(result.NextAfterID, 10)
		page.Meta.NextCursor = &cursor
	}

	response.JSON(w, r, http.StatusOK, page)
}

// GetSpot handles GET /v1/parking/spots/{slugOrId}.
func (h *ParkingHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	sp, err := h.catalogue.GetBySlug(r.Context(), chi.URLParam(r, "slugOrId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !sp.Active() {
		response.NotFound(w, r, "parking spot not found")
		return
	}

	response.JSON(w, r, http.StatusOK, toSpotResponse(sp))
}

func validateRankRequest(req *models.RankRequest) []models.FieldError {
	var fieldErrors []models.FieldError

	fieldErrors = validateDuration(fieldErrors, req.DurationMinutes)
	fieldErrors = validateVehicle(fieldErrors, req.Vehicle)

	if req.Destination != nil {
		if err := parking.ValidateCoordinate(parking.Coordinate{Lat: req.Destination.Lat, Lon: req.Destination.Lon}); err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field: "destination", Message: err.Error(), Code: CodeOutOfRange,
			})
		}
	}
	if req.Limit != nil && (*req.Limit < 1 || *req.Limit > ranking.MaxLimit) {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "limit",
			Message: "must be between 1 and " + strconv.Itoa(ranking.MaxLimit),
			Code:    CodeOutOfRange,
		})
	}
	if req.WalkingSpeedKmh != nil && *req.WalkingSpeedKmh <= 0 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "walkingSpeedKmh", Message: "must be positive", Code: CodeOutOfRange,
		})
	}

	return fieldErrors
}

func validateDuration(errs []models.FieldError, minutes *int) []models.FieldError {
	if minutes == nil {
		return errs
	}
	if *minutes <= 0 || *minutes > MaxDurationMinutes {
		errs = append(errs, models.FieldError{
			Field:   "durationMinutes",
			Message: "must be between 1 and " + strconv.Itoa(MaxDurationMinutes),
			Code:    CodeOutOfRange,
		})
	}
	return errs
}

// validateVehicle rejects "any": it only describes rules.
func validateVehicle(errs []models.FieldError, vehicle string) []models.FieldError {
	switch parking.Vehicle(vehicle) {
	case "", parking.VehicleStandard, parking.VehicleEV:
		return errs
	}
	return append(errs, models.FieldError{
		Field:   "vehicle",
		Message: `must be "standard" or "ev"`,
		Code:    CodeInvalidQuery,
	})
}

func parseSpotID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toRankResponse(result *ranking.Result, includeBreakdown bool) models.RankResponse {
	resp := models.RankResponse{
		Currency: result.Currency,
		Items:    make([]models.RankedSpot, len(result.Items)),
		Meta: models.RankMeta{
			Start:           models.Timestamp(result.Meta.Start),
			DurationMinutes: result.Meta.DurationMinutes,
			Vehicle:         string(result.Meta.Vehicle),
			ResolvedAddress: result.Meta.ResolvedAddress,
			UsedPromotions:  result.Meta.UsedPromotions,
			Candidates:      result.Meta.Candidates,
			Excluded:        result.Meta.Excluded,
			Warnings:        result.Meta.Warnings,
		},
	}
	if resp.Meta.UsedPromotions == nil {
		resp.Meta.UsedPromotions = []string{}
	}
	if d := result.Meta.Destination; d != nil {
		resp.Meta.Destination = &models.Point{Lat: d.Lat, Lon: d.Lon}
	}

	for i, item := range result.Items {
		ranked := models.RankedSpot{
			Rank:           i + 1,
			Cost:           item.Result.Cost,
			Score:          item.Result.Score,
			DistanceMeters: item.Result.DistanceMeters,
			WalkingMinutes: item.Result.WalkingMinutes,
			Summary:        item.Summary,
		}
		if item.Spot != nil {
			ranked.Spot = toSpotSummary(item.Spot)
		} else {
			ranked.Spot = models.SpotSummary{
				ID:       item.Result.Spot.ID,
				Location: models.Point{Lat: item.Result.Spot.Location.Lat, Lon: item.Result.Spot.Location.Lon},
			}
		}
		if includeBreakdown {
			b := toCostBreakdown(item.Result.Breakdown)
			ranked.Breakdown = &b
		}
		resp.Items[i] = ranked
	}

	return resp
}

func toCostBreakdown(b parking.CostBreakdown) models.CostBreakdown {
	out := models.CostBreakdown{
		Total:        b.Total,
		Currency:     b.Currency,
		Items:        make([]models.CostLineItem, len(b.Items)),
		CapReduction: b.CapReduction,
	}
	for i, item := range b.Items {
		out.Items[i] = models.CostLineItem{
			RuleIndex:        item.RuleIndex,
			WindowIndex:      item.WindowIndex,
			Start:            models.Timestamp(item.Start),
			End:              models.Timestamp(item.End),
			Minutes:          item.Minutes,
			FreeMinutes:      item.FreeMinutes,
			ChargedIntervals: item.ChargedIntervals,
			RoundedMinutes:   item.RoundedMinutes,
			Subtotal:         item.Subtotal,
			CapApplied:       item.CapApplied,
		}
	}
	for _, p := range b.AppliedPromotions {
		out.AppliedPromotions = append(out.AppliedPromotions, models.AppliedPromotion{
			Key:         p.Key,
			MinutesUsed: p.MinutesUsed,
		})
	}
	return out
}

func toSpotSummary(sp *spot.Spot) models.SpotSummary {
	return models.SpotSummary{
		ID:       sp.ID,
		Slug:     spot.Slug(sp),
		Name:     sp.Name,
		Provider: sp.Provider,
		Address:  sp.Address,
		City:     sp.City,
		ZoneCode: sp.ZoneCode,
		Location: models.Point{Lat: sp.Location.Lat, Lon: sp.Location.Lon},
	}
}

func toSpotResponse(sp *spot.Spot) models.SpotResponse {
	return models.SpotResponse{
		SpotSummary: toSpotSummary(sp),
		PostalCode:  sp.PostalCode,
		ActivatedAt: models.TimestampPtr(sp.ActivatedAt),
		Version:     sp.Version,
		Disabled:    sp.Disabled,
		Rules:       sp.Rules,
		Promotions:  sp.Promotions,
		Caps:        sp.Caps,
		CreatedAt:   models.Timestamp(sp.CreatedAt),
		UpdatedAt:   models.Timestamp(sp.UpdatedAt),
	}
}
