package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/parkwise/internal/api"
	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/auth"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/provider/resilience"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

const testSigningKey = "test-secret-key-for-testing-only"

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SigningKey: testSigningKey})
}

// operatorToken issues a token for an operator with the given scopes.
func operatorToken(t *testing.T, scopes ...string) string {
	t.Helper()
	token, _, err := testJWTService().IssueToken("ops@parkwise.no", scopes, time.Hour)
	require.NoError(t, err)
	return token
}

func seedSpot(id int64, name string, price float64) *spot.Spot {
	return &spot.Spot{
		Spot: parking.Spot{
			ID:       id,
			Location: parking.Coordinate{Lat: 59.9139, Lon: 10.7522},
			Rules: []parking.PricingRule{{
				Vehicle: parking.VehicleAny,
				Days:    parking.AllWeek,
				Windows: []parking.TimeWindow{parking.NewTimeWindow(0, parking.MinutesPerDay)},
				Pricing: parking.IntervalPricing{IntervalMinutes: 60, PricePerInterval: price},
			}},
		},
		Provider: "Oslo kommune",
		Name:     name,
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	repo := spot.NewInMemoryRepository()
	for _, sp := range []*spot.Spot{seedSpot(1, "Youngstorget", 42), seedSpot(2, "Grønland", 30)} {
		_, err := repo.Upsert(context.Background(), sp)
		require.NoError(t, err)
	}
	catalogue := spot.NewService(repo, logger)

	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "nominatim", Registry: registry})

	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2025-01-01T00:00:00Z",
		Logger:    logger,
		Tokens:    testJWTService(),
		Ranking:   ranking.NewService(ranking.Config{Catalogue: catalogue, Logger: logger}),
		Catalogue: catalogue,
		Providers: registry,
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"missing scope", operatorToken(t, auth.ScopeCatalogueWrite), http.StatusForbidden},
		{"ops scope", operatorToken(t, auth.ScopeOpsRead), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var status models.SystemStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
			assert.NotEmpty(t, status.Subsystems)
			require.Len(t, status.Providers, 1)
			assert.Equal(t, "nominatim", status.Providers[0].Provider)
		})
	}
}

func TestRouter_Rank(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/parking:rank", strings.NewReader(`{"durationMinutes": 90}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))

	var resp models.RankResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int64(2), resp.Items[0].Spot.ID)
	assert.Equal(t, "gronland-2", resp.Items[0].Spot.Slug)
}

func TestRouter_Rank_RejectsNonJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/parking:rank", strings.NewReader("durationMinutes=90"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_SpotEndpoints(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/parking/spots", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var page models.PagedSpots
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 2)

	req = httptest.NewRequest(http.MethodGet, "/v1/parking/spots/youngstorget-1", http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/parking/spots/1/cost", strings.NewReader(`{"durationMinutes": 60}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var cost models.CostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cost))
	assert.Equal(t, 42.0, cost.Breakdown.Total)
}

func TestRouter_AdminRequiresCatalogueScope(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"provider": "Oslo kommune",
		"name": "Tøyen",
		"location": {"lat": 59.915, "lon": 10.772},
		"rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5], "windows": [{"start": "08:00", "end": "17:00"}], "intervalMinutes": 60, "pricePerInterval": 35}]
	}`

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"ops scope only", operatorToken(t, auth.ScopeOpsRead), http.StatusForbidden},
		{"catalogue scope", operatorToken(t, auth.ScopeCatalogueWrite), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/v1/admin/spots/3", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/spots/3", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+operatorToken(t, auth.ScopeCatalogueWrite))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
