package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/spot"
)

const validSpotBody = `{
	"provider": "Aimo Park",
	"name": "Vulkan P-hus",
	"address": "Maridalsveien 17",
	"city": "Oslo",
	"location": {"lat": 59.9225, "lon": 10.7510},
	"rules": [{
		"kind": "interval",
		"vehicle": "any",
		"days": [1, 2, 3, 4, 5, 6, 7],
		"windows": [{"start": "00:00", "end": "24:00"}],
		"intervalMinutes": 60,
		"pricePerInterval": 49
	}],
	"caps": [{"windowMinutes": 1440, "price": 300}]
}`

func TestAdminHandler_UpsertSpot(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/v1/admin/spots/42", validSpotBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/v1/parking/spots/vulkan-p-hus-maridalsveien-17-42", rec.Header().Get("Location"))

	var created models.SpotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(42), created.ID)
	assert.False(t, created.CreatedAt.Time().IsZero())

	stored, err := env.repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Vulkan P-hus", stored.Name)
	require.Len(t, stored.Caps, 1)

	rec = env.do(t, http.MethodPut, "/v1/admin/spots/42", validSpotBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminHandler_UpsertSpotStaleVersion(t *testing.T) {
	env := newTestEnv(t, nil)

	v3 := strings.Replace(validSpotBody, `"city": "Oslo",`, `"city": "Oslo", "version": 3,`, 1)
	rec := env.do(t, http.MethodPut, "/v1/admin/spots/42", v3)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/v1/admin/spots/42", validSpotBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeConflict, problem.Type)
}

func TestAdminHandler_UpsertSpotValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("missing metadata and bad tariff", func(t *testing.T) {
		body := `{
			"location": {"lat": 59.9, "lon": 10.7},
			"rules": [{"kind": "interval", "vehicle": "any", "days": [], "windows": [{"start": "08:00", "end": "17:00"}], "intervalMinutes": 60, "pricePerInterval": 10}]
		}`
		rec := env.do(t, http.MethodPut, "/v1/admin/spots/1", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		p := decodeProblem(t, rec)
		fields := make([]string, len(p.Errors))
		for i, fe := range p.Errors {
			fields[i] = fe.Field
		}
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "provider")
		assert.Contains(t, fields, "rules[0].days")
	})

	t.Run("undecodable rule", func(t *testing.T) {
		body := `{"provider": "x", "name": "y", "location": {"lat": 59.9, "lon": 10.7}, "rules": [{"kind": "hourly"}]}`
		rec := env.do(t, http.MethodPut, "/v1/admin/spots/1", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		p := decodeProblem(t, rec)
		require.Len(t, p.Errors, 1)
		assert.Equal(t, "kind", p.Errors[0].Field)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/v1/admin/spots/zero", validSpotBody)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	_, err := env.repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, spot.ErrSpotNotFound)
}

func TestAdminHandler_DeleteSpot(t *testing.T) {
	env := newTestEnv(t, nil, hourlySpot(5, "Vulkan", 25, 59.9225, 10.7510))

	rec := env.do(t, http.MethodDelete, "/v1/admin/spots/5", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/admin/spots/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
