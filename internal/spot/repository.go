package spot

import "context"

// ListOptions contains options for listing spots.
type ListOptions struct {
	// IncludeDisabled also returns spots marked disabled.
	IncludeDisabled bool
	Limit           int
	// AfterID continues a listing after the spot with this ID.
	AfterID int64
}

// ListResult contains the results of listing spots.
type ListResult struct {
	Items []*Spot
	// NextAfterID is set when more spots follow.
	NextAfterID int64
	// Skipped lists stored spots whose tariff could not be decoded.
	Skipped []SkippedSpot
}

// SkippedSpot is a stored spot left out of a listing.
type SkippedSpot struct {
	ID  int64
	Err error
}

// Repository defines the interface for spot persistence.
type Repository interface {
	// Get retrieves a spot by ID.
	Get(ctx context.Context, id int64) (*Spot, error)

	// List retrieves spots ordered by ID.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Upsert creates the spot or replaces the stored one with the same ID.
	// It reports whether a new spot was created.
	Upsert(ctx context.Context, spot *Spot) (bool, error)

	// Delete removes a spot by ID.
	Delete(ctx context.Context, id int64) error
}
