package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api/middleware"
	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/api/response"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

// Field error codes.
const (
	CodeInvalidQuery  = "INVALID_QUERY"
	CodeInvalidTariff = "INVALID_TARIFF"
	CodeRequired      = "REQUIRED"
	CodeOutOfRange    = "OUT_OF_RANGE"
)

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var (
		queryErr  *parking.QueryError
		validErr  *spot.ValidationError
		configErr parking.ConfigErrors
		ruleErr   *parking.ConfigError
		tariffErr *spot.TariffError
	)

	// Stored tariffs wrap configuration errors, so they are matched first.
	switch {
	case errors.As(err, &tariffErr):
		log.Error().
			Err(err).
			Int64("spot_id", tariffErr.SpotID).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("spot tariff is invalid")
		response.InternalError(w, r, "the spot's tariff is misconfigured")
	case errors.As(err, &queryErr):
		response.BadRequest(w, r, "invalid query", []models.FieldError{{
			Field:   queryErr.Field,
			Message: queryErr.Message,
			Code:    CodeInvalidQuery,
		}})
	case errors.As(err, &validErr):
		response.BadRequest(w, r, "validation failed", validErr.Errors)
	case errors.As(err, &configErr):
		response.BadRequest(w, r, "invalid tariff", configFieldErrors(configErr))
	case errors.As(err, &ruleErr):
		response.BadRequest(w, r, "invalid tariff", configFieldErrors(parking.ConfigErrors{ruleErr}))
	case errors.Is(err, ranking.ErrAddressNotFound):
		response.Unprocessable(w, r, "destination address could not be found")
	case errors.Is(err, spot.ErrSpotNotFound):
		response.NotFound(w, r, "parking spot not found")
	case errors.Is(err, spot.ErrStaleVersion):
		response.Conflict(w, r, "a newer version of this spot is already stored")
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "internal server error")
	}
}

func configFieldErrors(errs parking.ConfigErrors) []models.FieldError {
	out := make([]models.FieldError, len(errs))
	for i, ce := range errs {
		out[i] = models.FieldError{Field: ce.Field, Message: ce.Message, Code: CodeInvalidTariff}
	}
	return out
}
