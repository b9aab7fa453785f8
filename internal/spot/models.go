// Package spot manages the parking spot catalogue.
package spot

import (
	"errors"
	"fmt"
	"time"

	"github.com/parkwise/parkwise/internal/parking"
)

// Sentinel errors for catalogue operations.
var (
	// ErrSpotNotFound indicates no spot exists with the given ID or slug.
	ErrSpotNotFound = errors.New("parking spot not found")

	// ErrStaleVersion indicates an update carrying an older version than
	// the stored spot.
	ErrStaleVersion = errors.New("spot version is older than the stored version")
)

// TariffError reports a stored tariff document that does not decode.
type TariffError struct {
	SpotID int64
	Err    error
}

func (e *TariffError) Error() string {
	return fmt.Sprintf("decode tariff of spot %d: %v", e.SpotID, e.Err)
}

func (e *TariffError) Unwrap() error { return e.Err }

// Spot is a catalogue entry: the engine's tariff record plus descriptive
// metadata about the location.
type Spot struct {
	parking.Spot

	Provider    string
	Name        string
	Address     string
	PostalCode  string
	City        string
	ZoneCode    string
	ActivatedAt *time.Time
	Version     int
	Disabled    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the spot should take part in ranking.
func (s *Spot) Active() bool {
	return !s.Disabled
}

// tariff is the JSONB document holding a spot's pricing configuration.
type tariff struct {
	Rules      []parking.PricingRule `json:"rules"`
	Promotions []parking.Promotion   `json:"promotions,omitempty"`
	Caps       []parking.Cap         `json:"caps,omitempty"`
}

func tariffOf(s *Spot) tariff {
	return tariff{Rules: s.Rules, Promotions: s.Promotions, Caps: s.Caps}
}

func (t tariff) applyTo(s *Spot) {
	s.Rules = t.Rules
	s.Promotions = t.Promotions
	s.Caps = t.Caps
}

// clone copies the spot deeply enough that callers cannot alias repository
// state through its slices.
func (s *Spot) clone() *Spot {
	cpy := *s
	cpy.Rules = append([]parking.PricingRule(nil), s.Rules...)
	cpy.Promotions = append([]parking.Promotion(nil), s.Promotions...)
	cpy.Caps = append([]parking.Cap(nil), s.Caps...)
	if s.ActivatedAt != nil {
		at := *s.ActivatedAt
		cpy.ActivatedAt = &at
	}
	return &cpy
}
