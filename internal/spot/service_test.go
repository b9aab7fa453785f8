package spot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/spot"
)

func newSpot(id int64) *spot.Spot {
	return &spot.Spot{
		Spot: parking.Spot{
			ID:       id,
			Location: parking.Coordinate{Lat: 59.91, Lon: 10.75},
			Rules: []parking.PricingRule{{
				Vehicle: parking.VehicleAny,
				Days:    parking.AllWeek,
				Windows: []parking.TimeWindow{parking.NewTimeWindow(0, parking.MinutesPerDay)},
				Pricing: parking.IntervalPricing{IntervalMinutes: 60, PricePerInterval: 45},
			}},
		},
		Provider: "Oslo kommune",
		Name:     "Tøyen torg",
		Address:  "Tøyengata 30",
	}
}

func TestService_UpsertAndGet(t *testing.T) {
	svc := spot.NewService(spot.NewInMemoryRepository(), zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Upsert(ctx, newSpot(10))
	require.NoError(t, err)
	assert.True(t, created)

	got, err := svc.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Tøyen torg", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
	require.Len(t, got.Rules, 1)

	updated := newSpot(10)
	updated.Name = "Tøyen torg P"
	created, err = svc.Upsert(ctx, updated)
	require.NoError(t, err)
	assert.False(t, created)

	got, err = svc.GetBySlug(ctx, "toyen-torg-p-toyengata-30-10")
	require.NoError(t, err)
	assert.Equal(t, "Tøyen torg P", got.Name)
}

func TestService_Upsert_ValidationErrors(t *testing.T) {
	svc := spot.NewService(spot.NewInMemoryRepository(), zerolog.Nop())

	bad := newSpot(11)
	bad.Name = ""
	bad.Rules[0].Pricing = parking.IntervalPricing{PricePerInterval: 45}

	_, err := svc.Upsert(context.Background(), bad)
	require.Error(t, err)

	var verr *spot.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := map[string]bool{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["rules[0].intervalMinutes"])

	_, err = svc.Get(context.Background(), 11)
	assert.ErrorIs(t, err, spot.ErrSpotNotFound)
}

func TestService_Upsert_RejectsStaleVersion(t *testing.T) {
	svc := spot.NewService(spot.NewInMemoryRepository(), zerolog.Nop())
	ctx := context.Background()

	v2 := newSpot(20)
	v2.Version = 2
	_, err := svc.Upsert(ctx, v2)
	require.NoError(t, err)
	first, err := svc.Get(ctx, 20)
	require.NoError(t, err)

	v1 := newSpot(20)
	v1.Version = 1
	_, err = svc.Upsert(ctx, v1)
	assert.ErrorIs(t, err, spot.ErrStaleVersion)

	same := newSpot(20)
	same.Version = 2
	same.Name = "Tøyen torg nord"
	created, err := svc.Upsert(ctx, same)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := svc.Get(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "Tøyen torg nord", got.Name)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
}

func TestService_ActiveSkipsDisabledAndPages(t *testing.T) {
	repo := spot.NewInMemoryRepository()
	svc := spot.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	for id := int64(1); id <= 1200; id++ {
		s := newSpot(id)
		s.Disabled = id%100 == 0
		_, err := svc.Upsert(ctx, s)
		require.NoError(t, err)
	}

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1188)
	for _, s := range active {
		assert.True(t, s.Active())
	}
}

func TestService_List(t *testing.T) {
	svc := spot.NewService(spot.NewInMemoryRepository(), zerolog.Nop())
	ctx := context.Background()
	for id := int64(1); id <= 5; id++ {
		_, err := svc.Upsert(ctx, newSpot(id))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, spot.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.NextAfterID)

	page, err = svc.List(ctx, spot.ListOptions{Limit: 2, AfterID: page.NextAfterID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Items[0].ID)
}

func TestService_Delete(t *testing.T) {
	svc := spot.NewService(spot.NewInMemoryRepository(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Upsert(ctx, newSpot(3))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 3))
	assert.ErrorIs(t, svc.Delete(ctx, 3), spot.ErrSpotNotFound)
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := spot.NewInMemoryRepository()
	ctx := context.Background()
	_, err := repo.Upsert(ctx, newSpot(1))
	require.NoError(t, err)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	got.Rules[0].Vehicle = parking.VehicleEV
	got.Name = "changed"

	again, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, parking.VehicleAny, again.Rules[0].Vehicle)
	assert.Equal(t, "Tøyen torg", again.Name)
}
