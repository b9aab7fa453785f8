package spot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const spotColumns = `
	id, provider, name, address, postal_code, city, zone_code,
	lat, lon, tariff, activated_at, version, disabled,
	created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
// Tariff rules, promotions and caps are stored together as a JSONB document.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL spot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a spot by ID.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE id = $1`

	s, err := scanSpot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves spots ordered by ID.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `SELECT ` + spotColumns + `
		FROM parking_spots
		WHERE id > $1 AND ($2 OR NOT disabled)
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, opts.AfterID, opts.IncludeDisabled, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		spots   []*Spot
		skipped []SkippedSpot
	)
	for rows.Next() {
		s, err := scanSpot(rows)
		var terr *TariffError
		if errors.As(err, &terr) {
			skipped = append(skipped, SkippedSpot{ID: terr.SpotID, Err: terr})
			continue
		}
		if err != nil {
			return nil, err
		}
		spots = append(spots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: spots, Skipped: skipped}
	if len(spots) > limit {
		result.Items = spots[:limit]
		result.NextAfterID = spots[limit-1].ID
	}
	return result, nil
}

// Upsert creates or replaces a spot. xmax is zero only for freshly inserted
// rows, which tells the two cases apart.
func (r *PostgresRepository) Upsert(ctx context.Context, s *Spot) (bool, error) {
	doc, err := json.Marshal(tariffOf(s))
	if err != nil {
		return false, fmt.Errorf("encode tariff: %w", err)
	}

	query := `
		INSERT INTO parking_spots (` + spotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider,
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			postal_code = EXCLUDED.postal_code,
			city = EXCLUDED.city,
			zone_code = EXCLUDED.zone_code,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			tariff = EXCLUDED.tariff,
			activated_at = EXCLUDED.activated_at,
			version = EXCLUDED.version,
			disabled = EXCLUDED.disabled,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`

	var inserted bool
	err = r.pool.QueryRow(ctx, query,
		s.ID,
		s.Provider,
		s.Name,
		s.Address,
		s.PostalCode,
		s.City,
		s.ZoneCode,
		s.Location.Lat,
		s.Location.Lon,
		doc,
		s.ActivatedAt,
		s.Version,
		s.Disabled,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Delete removes a spot by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM parking_spots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSpotNotFound
	}
	return nil
}

func scanSpot(row pgx.Row) (*Spot, error) {
	var (
		s   Spot
		doc []byte
	)
	err := row.Scan(
		&s.ID,
		&s.Provider,
		&s.Name,
		&s.Address,
		&s.PostalCode,
		&s.City,
		&s.ZoneCode,
		&s.Location.Lat,
		&s.Location.Lon,
		&doc,
		&s.ActivatedAt,
		&s.Version,
		&s.Disabled,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var t tariff
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, &TariffError{SpotID: s.ID, Err: err}
	}
	t.applyTo(&s)
	return &s, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
