package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/api/response"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/spot"
)

// SpotWriter is the write side of the spot catalogue.
type SpotWriter interface {
	Get(ctx context.Context, id int64) (*spot.Spot, error)
	Upsert(ctx context.Context, sp *spot.Spot) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// AdminHandler handles operator catalogue maintenance.
type AdminHandler struct {
	catalogue SpotWriter
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalogue SpotWriter, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{catalogue: catalogue, logger: logger}
}

// UpsertSpot handles PUT /v1/admin/spots/{spotId} - create or replace a spot.
func (h *AdminHandler) UpsertSpot(w http.ResponseWriter, r *http.Request) {
	spotID, ok := parseSpotID(chi.URLParam(r, "spotId"))
	if !ok {
		response.BadRequest(w, r, "validation failed", []models.FieldError{{
			Field: "spotId", Message: "must be a positive integer", Code: CodeOutOfRange,
		}})
		return
	}

	var req models.SpotUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, r, h.logger, err)
		return
	}

	sp := &spot.Spot{
		Spot: parking.Spot{
			ID:         spotID,
			Location:   parking.Coordinate{Lat: req.Location.Lat, Lon: req.Location.Lon},
			Rules:      req.Rules,
			Promotions: req.Promotions,
			Caps:       req.Caps,
		},
		Provider:   req.Provider,
		Name:       req.Name,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		City:       req.City,
		ZoneCode:   req.ZoneCode,
		Version:    req.Version,
		Disabled:   req.Disabled,
	}
	if req.ActivatedAt != nil {
		at := req.ActivatedAt.Time()
		sp.ActivatedAt = &at
	}

	created, err := h.catalogue.Upsert(r.Context(), sp)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info().
		Int64("spot_id", spotID).
		Str("operator", GetOperator(r.Context())).
		Bool("created", created).
		Msg("spot upserted by operator")

	stored, err := h.catalogue.Get(r.Context(), spotID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	body := toSpotResponse(stored)
	if created {
		response.Created(w, r, "/v1/parking/spots/"+body.Slug, body)
		return
	}
	response.JSON(w, r, http.StatusOK, body)
}

// DeleteSpot handles DELETE /v1/admin/spots/{spotId}.
func (h *AdminHandler) DeleteSpot(w http.ResponseWriter, r *http.Request) {
	spotID, ok := parseSpotID(chi.URLParam(r, "spotId"))
	if !ok {
		response.NotFound(w, r, "parking spot not found")
		return
	}

	if err := h.catalogue.Delete(r.Context(), spotID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info().
		Int64("spot_id", spotID).
		Str("operator", GetOperator(r.Context())).
		Msg("spot deleted by operator")

	response.NoContent(w, r)
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var ruleErr *parking.ConfigError
	if errors.As(err, &ruleErr) {
		writeError(w, r, log, err)
		return
	}
	response.BadRequest(w, r, "invalid JSON body", nil)
}
