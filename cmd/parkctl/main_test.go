package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/parkwise/internal/auth"
	"github.com/parkwise/parkwise/internal/parking"
)

const testCatalogue = `[
  {
    "id": 1,
    "provider": "Aimo Park",
    "name": "Vulkan P-hus",
    "address": "Maridalsveien 17",
    "location": {"lat": 59.9225, "lon": 10.7510},
    "rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5,6,7], "windows": [{"start": "00:00", "end": "24:00"}], "intervalMinutes": 60, "pricePerInterval": 40}]
  },
  {
    "id": 2,
    "provider": "Oslo kommune",
    "name": "Grønland",
    "location": {"lat": 59.9127, "lon": 10.7600},
    "rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5,6,7], "windows": [{"start": "00:00", "end": "24:00"}], "intervalMinutes": 60, "pricePerInterval": 30}]
  }
]`

func writeCatalogue(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogue.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogue), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCost(t *testing.T) {
	path := writeCatalogue(t)

	out, err := run(t, "cost", "1", "-c", path, "--start", "2025-03-03T10:00:00+01:00", "--duration", "120", "--json")
	require.NoError(t, err)

	var breakdown parking.CostBreakdown
	require.NoError(t, json.Unmarshal([]byte(out), &breakdown))
	assert.Equal(t, 80.0, breakdown.Total)
	assert.Equal(t, parking.Currency, breakdown.Currency)
}

func TestCost_BySlugText(t *testing.T) {
	path := writeCatalogue(t)

	out, err := run(t, "cost", "gronland-2", "-c", path, "--start", "2025-03-03T10:00:00+01:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Grønland (gronland-2)")
	assert.Contains(t, out, "total 30.00 NOK")
}

func TestCost_Errors(t *testing.T) {
	path := writeCatalogue(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad id", []string{"cost", "nope", "-c", path}, "neither a spot id nor a slug"},
		{"unknown spot", []string{"cost", "99", "-c", path}, "not found"},
		{"bad vehicle", []string{"cost", "1", "-c", path, "--vehicle", "any"}, "--vehicle"},
		{"bad duration", []string{"cost", "1", "-c", path, "--duration", "0"}, "--duration"},
		{"bad start", []string{"cost", "1", "-c", path, "--start", "tomorrow"}, "--start"},
		{"missing catalogue", []string{"cost", "1", "-c", filepath.Join(t.TempDir(), "none.json")}, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRank(t *testing.T) {
	path := writeCatalogue(t)

	out, err := run(t, "rank", "-c", path, "--start", "2025-03-03T10:00:00+01:00", "--duration", "60", "--json")
	require.NoError(t, err)

	var ranked []rankedJSON
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, "gronland-2", ranked[0].Slug)
	assert.Equal(t, 30, ranked[0].Summary.Price)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestRank_SkipsMalformedSpots(t *testing.T) {
	catalogue := `[
  {"id": 1, "provider": "Aimo Park", "name": "Vulkan P-hus", "location": {"lat": 59.9225, "lon": 10.7510},
   "rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5,6,7], "windows": [{"start": "00:00", "end": "24:00"}], "intervalMinutes": 60, "pricePerInterval": 40}]},
  {"id": 2, "provider": "Oslo kommune", "name": "Grønland", "location": {"lat": 59.9127, "lon": 10.7600},
   "rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5,6,7], "windows": [{"start": "00:00", "end": "24:00"}], "pricePerInterval": 30}]},
  {"id": 3, "provider": "Oslo kommune", "name": "Tøyen", "location": {"lat": 59.915, "lon": 10.772},
   "rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5,6,9], "windows": [{"start": "00:00", "end": "24:00"}], "intervalMinutes": 60, "pricePerInterval": 20}]}
]`
	path := filepath.Join(t.TempDir(), "catalogue.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogue), 0o600))

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"rank", "-c", path, "--start", "2025-03-03T10:00:00+01:00", "--json"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var ranked []rankedJSON
	require.NoError(t, json.Unmarshal(out.Bytes(), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, int64(1), ranked[0].ID)
	assert.Equal(t, 40, ranked[0].Summary.Price)

	assert.Contains(t, errOut.String(), "skipping malformed spot")
	assert.Contains(t, errOut.String(), "skipping invalid spot")
}

func TestRank_Text(t *testing.T) {
	path := writeCatalogue(t)

	out, err := run(t, "rank", "-c", path, "--lat", "59.9225", "--lon", "10.7510", "--limit", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1 of 2 spots")
	assert.Contains(t, lines[1], "min walk")
}

func TestRank_RequiresBothCoordinates(t *testing.T) {
	_, err := run(t, "rank", "-c", writeCatalogue(t), "--lat", "59.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--lat and --lon")
}

func TestToken(t *testing.T) {
	const key = "parkctl-test-key"

	out, err := run(t, "token", "--subject", "ops@parkwise.no", "--scope", auth.ScopeCatalogueWrite, "--signing-key", key)
	require.NoError(t, err)

	claims, err := auth.NewJWTService(auth.JWTConfig{SigningKey: key}).ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops@parkwise.no", claims.Subject)
	assert.True(t, claims.HasScope(auth.ScopeCatalogueWrite))
	assert.False(t, claims.HasScope(auth.ScopeOpsRead))
}

func TestToken_Errors(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := run(t, "token", "--subject", "ops@parkwise.no")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signing key")

	_, err = run(t, "token", "--subject", "ops@parkwise.no", "--signing-key", "k", "--scope", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scope "admin"`)
}
