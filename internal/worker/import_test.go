package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/parkwise/internal/spot"
	"github.com/parkwise/parkwise/internal/worker"
)

func spotRecord(id int64, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"id": %d,
		"provider": "Aimo Park",
		"name": %q,
		"address": "Storgata 1",
		"city": "Oslo",
		"location": {"lat": 59.9139, "lon": 10.7522},
		"rules": [{"kind": "interval", "vehicle": "any", "days": [1,2,3,4,5,6,7], "windows": [{"start": "00:00", "end": "24:00"}], "intervalMinutes": 60, "pricePerInterval": 40}]
	}`, id, name))
}

func newCatalogue() (*spot.Service, *spot.InMemoryRepository) {
	repo := spot.NewInMemoryRepository()
	return spot.NewService(repo, zerolog.Nop()), repo
}

func TestDefaultImportConfig(t *testing.T) {
	cfg := worker.DefaultImportConfig()

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 5000, cfg.MaxSpots)
}

func TestImportJob_Run(t *testing.T) {
	catalogue, _ := newCatalogue()
	job := worker.NewImportJob(worker.ImportJobConfig{Catalogue: catalogue, Logger: zerolog.Nop()})
	ctx := context.Background()

	records := []json.RawMessage{
		spotRecord(1, "Youngstorget"),
		spotRecord(2, ""),
		json.RawMessage(`{"id": 3, "name": "Broken", "rules": [{"kind": "hourly"}]}`),
		spotRecord(4, "Grønland"),
	}

	result, err := job.Run(ctx, "batch-1", records)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Errors, 2)

	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, int64(2), result.Errors[0].SpotID)
	require.NotEmpty(t, result.Errors[0].Fields)
	assert.Equal(t, "name", result.Errors[0].Fields[0].Field)

	assert.Equal(t, 2, result.Errors[1].Index)
	require.Len(t, result.Errors[1].Fields, 1)
	assert.Equal(t, "kind", result.Errors[1].Fields[0].Field)

	got, err := catalogue.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Grønland", got.Name)

	_, err = catalogue.Get(ctx, 2)
	assert.ErrorIs(t, err, spot.ErrSpotNotFound)

	// A second import of the same spot is an update.
	result, err = job.Run(ctx, "", []json.RawMessage{spotRecord(1, "Youngstorget P")})
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 1, result.Updated)

	m := job.GetMetrics()
	assert.Equal(t, int64(2), m.Batches)
	assert.Equal(t, int64(2), m.Created)
	assert.Equal(t, int64(1), m.Updated)
	assert.Equal(t, int64(2), m.Failed)
	assert.Equal(t, result.BatchID, m.LastBatchID)
}

type failingStore struct{ err error }

func (s failingStore) Upsert(context.Context, *spot.Spot) (bool, error) { return false, s.err }

func TestImportJob_Run_StoreFailuresAreReported(t *testing.T) {
	job := worker.NewImportJob(worker.ImportJobConfig{
		Catalogue: failingStore{err: errors.New("connection reset")},
		Logger:    zerolog.Nop(),
	})

	result, err := job.Run(context.Background(), "b", []json.RawMessage{spotRecord(1, "A")})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, int64(1), result.Errors[0].SpotID)
	assert.Equal(t, 0, result.Errors[0].Index)
	assert.Equal(t, "connection reset", result.Errors[0].Error)
}

func TestImportJob_Run_BatchTooLarge(t *testing.T) {
	catalogue, _ := newCatalogue()
	job := worker.NewImportJob(worker.ImportJobConfig{
		Config:    worker.ImportConfig{MaxSpots: 1},
		Catalogue: catalogue,
		Logger:    zerolog.Nop(),
	})

	_, err := job.Run(context.Background(), "", []json.RawMessage{spotRecord(1, "A"), spotRecord(2, "B")})
	assert.ErrorIs(t, err, worker.ErrBatchTooLarge)
}

func TestImportJob_Run_Cancelled(t *testing.T) {
	catalogue, _ := newCatalogue()
	job := worker.NewImportJob(worker.ImportJobConfig{Catalogue: catalogue, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := job.Run(ctx, "", []json.RawMessage{spotRecord(1, "A")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportJob_MetricsSnapshot(t *testing.T) {
	catalogue, _ := newCatalogue()
	job := worker.NewImportJob(worker.ImportJobConfig{Catalogue: catalogue, Logger: zerolog.Nop()})

	_, err := job.Run(context.Background(), "snap", []json.RawMessage{spotRecord(1, "A")})
	require.NoError(t, err)

	snapshot := job.MetricsSnapshot()
	assert.Equal(t, int64(1), snapshot["batches"])
	assert.Equal(t, int64(1), snapshot["spots_created"])
	assert.Equal(t, "snap", snapshot["last_batch_id"])
}
