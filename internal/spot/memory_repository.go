package spot

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository, used in
// tests and by the CLI when ranking over a catalogue file.
type InMemoryRepository struct {
	mu    sync.RWMutex
	spots map[int64]*Spot
}

// NewInMemoryRepository creates a new in-memory spot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		spots: make(map[int64]*Spot),
	}
}

// Get retrieves a spot by ID.
func (r *InMemoryRepository) Get(_ context.Context, id int64) (*Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.spots[id]
	if !ok {
		return nil, ErrSpotNotFound
	}
	return s.clone(), nil
}

// List retrieves spots ordered by ID.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var spots []*Spot
	for _, s := range r.spots {
		if s.ID <= opts.AfterID {
			continue
		}
		if !opts.IncludeDisabled && s.Disabled {
			continue
		}
		spots = append(spots, s.clone())
	}
	slices.SortFunc(spots, func(a, b *Spot) int { return cmp.Compare(a.ID, b.ID) })

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	result := &ListResult{Items: spots}
	if len(spots) > limit {
		result.Items = spots[:limit]
		result.NextAfterID = spots[limit-1].ID
	}
	return result, nil
}

// Upsert creates or replaces a spot.
func (r *InMemoryRepository) Upsert(_ context.Context, spot *Spot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.spots[spot.ID]
	stored := spot.clone()
	if ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.spots[spot.ID] = stored
	return !ok, nil
}

// Delete removes a spot by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spots[id]; !ok {
		return ErrSpotNotFound
	}
	delete(r.spots, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
