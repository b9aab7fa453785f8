package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/spot"
)

// ErrBatchTooLarge is returned when an import exceeds ImportConfig.MaxSpots.
var ErrBatchTooLarge = errors.New("import batch too large")

// SpotStore is the catalogue write path used by imports.
type SpotStore interface {
	Upsert(ctx context.Context, sp *spot.Spot) (bool, error)
}

// ImportJob validates and stores batches of catalogue records.
type ImportJob struct {
	config    ImportConfig
	catalogue SpotStore
	logger    zerolog.Logger
	now       func() time.Time

	metrics *ImportMetrics
}

// ImportMetrics tracks import job statistics.
type ImportMetrics struct {
	mu sync.RWMutex

	Batches  int64
	Created  int64
	Updated  int64
	Rejected int64
	Failed   int64

	LastBatchID       string
	LastImportAt      time.Time
	LastImportElapsed time.Duration
}

// ImportJobConfig holds configuration for creating an ImportJob.
type ImportJobConfig struct {
	Config    ImportConfig
	Catalogue SpotStore
	Logger    zerolog.Logger
	Now       func() time.Time
}

// NewImportJob creates a new import job processor.
func NewImportJob(cfg ImportJobConfig) *ImportJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ImportJob{
		config:    cfg.Config.withDefaults(),
		catalogue: cfg.Catalogue,
		logger:    cfg.Logger,
		now:       now,
		metrics:   &ImportMetrics{},
	}
}

// ImportResult contains the outcome of one import batch.
type ImportResult struct {
	BatchID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Total     int
	Created   int
	Updated   int
	Errors    []ImportError
}

// Succeeded is the number of spots stored.
func (r *ImportResult) Succeeded() int { return r.Created + r.Updated }

// Failed is the number of spots rejected or not stored.
func (r *ImportResult) Failed() int { return len(r.Errors) }

// ImportError describes a record that was not stored.
type ImportError struct {
	Index  int
	SpotID int64
	Fields []models.FieldError
	Error  string
}

type checked struct {
	index int
	spot  *spot.Spot
	err   *ImportError
}

// Run decodes and validates every record concurrently, then stores the
// valid ones in input order. Invalid records are reported in the result.
func (j *ImportJob) Run(ctx context.Context, batchID string, records []json.RawMessage) (*ImportResult, error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	if len(records) > j.config.MaxSpots {
		return nil, fmt.Errorf("%w: %d spots, limit %d", ErrBatchTooLarge, len(records), j.config.MaxSpots)
	}

	start := j.now()
	result := &ImportResult{BatchID: batchID, StartTime: start, Total: len(records)}
	logger := j.logger.With().Str("batch_id", batchID).Logger()

	logger.Info().
		Int("spots", len(records)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting catalogue import")

	checks := make([]checked, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for i, raw := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			checks[i] = check(i, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range checks {
		if c.err != nil {
			result.Errors = append(result.Errors, *c.err)
			continue
		}
		created, err := j.store(ctx, c.spot)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, j.storeError(c, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(start)
	j.updateMetrics(result)

	for _, e := range result.Errors {
		logger.Warn().
			Int("index", e.Index).
			Int64("spot_id", e.SpotID).
			Str("error", e.Error).
			Msg("spot rejected")
	}
	logger.Info().
		Dur("duration", result.Duration).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", result.Failed()).
		Msg("catalogue import completed")

	return result, nil
}

func (j *ImportJob) store(ctx context.Context, sp *spot.Spot) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()
	return j.catalogue.Upsert(storeCtx, sp)
}

func (j *ImportJob) storeError(c checked, err error) ImportError {
	ie := ImportError{Index: c.index, SpotID: c.spot.ID, Error: err.Error()}
	var ve *spot.ValidationError
	if errors.As(err, &ve) {
		ie.Fields = ve.Errors
	}
	return ie
}

// check decodes one record and validates it.
func check(index int, raw json.RawMessage) checked {
	var rec spot.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		ie := &ImportError{Index: index, Error: err.Error()}
		var ce *parking.ConfigError
		if errors.As(err, &ce) {
			ie.Fields = []models.FieldError{{Field: ce.Field, Message: ce.Message}}
		}
		return checked{index: index, err: ie}
	}

	sp := rec.Spot()
	if fields := spot.Validate(sp); len(fields) > 0 {
		return checked{index: index, err: &ImportError{
			Index:  index,
			SpotID: sp.ID,
			Fields: fields,
			Error:  describeFields(fields),
		}}
	}
	return checked{index: index, spot: sp}
}

func describeFields(fields []models.FieldError) string {
	msg := "validation failed: " + fields[0].Field + ": " + fields[0].Message
	if len(fields) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(fields)-1)
	}
	return msg
}

func (j *ImportJob) updateMetrics(result *ImportResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Batches++
	j.metrics.Created += int64(result.Created)
	j.metrics.Updated += int64(result.Updated)
	j.metrics.Failed += int64(result.Failed())
	if result.Failed() > result.Succeeded() {
		j.metrics.Rejected++
	}
	j.metrics.LastBatchID = result.BatchID
	j.metrics.LastImportAt = result.EndTime
	j.metrics.LastImportElapsed = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *ImportJob) GetMetrics() ImportMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return ImportMetrics{
		Batches:           j.metrics.Batches,
		Created:           j.metrics.Created,
		Updated:           j.metrics.Updated,
		Rejected:          j.metrics.Rejected,
		Failed:            j.metrics.Failed,
		LastBatchID:       j.metrics.LastBatchID,
		LastImportAt:      j.metrics.LastImportAt,
		LastImportElapsed: j.metrics.LastImportElapsed,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ImportJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"batches":             m.Batches,
		"spots_created":       m.Created,
		"spots_updated":       m.Updated,
		"spots_failed":        m.Failed,
		"batches_rejected":    m.Rejected,
		"last_batch_id":       m.LastBatchID,
		"last_import_at":      m.LastImportAt,
		"last_import_elapsed": m.LastImportElapsed.String(),
	}
}
