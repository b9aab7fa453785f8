package spot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api/models"
	"github.com/parkwise/parkwise/internal/parking"
)

// Validation constants.
const (
	MaxNameLength     = 200
	MaxAddressLength  = 300
	MaxProviderLength = 200
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Service provides catalogue operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new catalogue service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// List retrieves one page of spots.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	result, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.logSkipped(result.Skipped)
	return result, nil
}

// Active returns every spot that is not disabled.
func (s *Service) Active(ctx context.Context) ([]*Spot, error) {
	var (
		spots []*Spot
		after int64
	)
	for {
		page, err := s.repo.List(ctx, ListOptions{Limit: maxListLimit, AfterID: after})
		if err != nil {
			return nil, err
		}
		s.logSkipped(page.Skipped)
		spots = append(spots, page.Items...)
		if page.NextAfterID == 0 {
			return spots, nil
		}
		after = page.NextAfterID
	}
}

func (s *Service) logSkipped(skipped []SkippedSpot) {
	for _, sk := range skipped {
		s.logger.Warn().
			Err(sk.Err).
			Int64("spot_id", sk.ID).
			Msg("skipping spot with undecodable tariff")
	}
}

// Get retrieves a spot by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Spot, error) {
	return s.repo.Get(ctx, id)
}

// GetBySlug retrieves a spot by its slug or bare numeric ID.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Spot, error) {
	id, ok := IDFromSlug(slug)
	if !ok {
		return nil, ErrSpotNotFound
	}
	return s.repo.Get(ctx, id)
}

// Upsert validates and stores a spot. It reports whether the spot was new.
func (s *Service) Upsert(ctx context.Context, spot *Spot) (bool, error) {
	if fieldErrors := Validate(spot); len(fieldErrors) > 0 {
		return false, &ValidationError{Errors: fieldErrors}
	}

	existing, err := s.repo.Get(ctx, spot.ID)
	var tariffErr *TariffError
	switch {
	case err == nil:
		if spot.Version < existing.Version {
			return false, fmt.Errorf("%w: spot %d is at version %d", ErrStaleVersion, spot.ID, existing.Version)
		}
		spot.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrSpotNotFound), errors.As(err, &tariffErr):
		// New spot, or a broken stored tariff being replaced.
	default:
		return false, err
	}

	now := s.now().UTC()
	if spot.CreatedAt.IsZero() {
		spot.CreatedAt = now
	}
	spot.UpdatedAt = now

	created, err := s.repo.Upsert(ctx, spot)
	if err != nil {
		return false, err
	}

	s.logger.Info().
		Int64("spot_id", spot.ID).
		Bool("created", created).
		Int("rules", len(spot.Rules)).
		Msg("spot stored")
	return created, nil
}

// Delete removes a spot.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Validate checks catalogue metadata and the tariff and returns one field
// error per problem.
func Validate(spot *Spot) []models.FieldError {
	var fieldErrors []models.FieldError

	name := strings.TrimSpace(spot.Name)
	if name == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > MaxNameLength {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "name", Message: "name must be at most 200 characters"})
	}
	if strings.TrimSpace(spot.Provider) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "provider", Message: "provider is required"})
	} else if len(spot.Provider) > MaxProviderLength {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "provider", Message: "provider must be at most 200 characters"})
	}
	if len(spot.Address) > MaxAddressLength {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "address", Message: "address must be at most 300 characters"})
	}
	if spot.Version < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "version", Message: "version must not be negative"})
	}

	var cerrs parking.ConfigErrors
	if err := spot.Spot.Validate(); errors.As(err, &cerrs) {
		for _, ce := range cerrs {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   ce.Field,
				Message: ce.Message,
				Code:    "INVALID_TARIFF",
			})
		}
	}

	return fieldErrors
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
