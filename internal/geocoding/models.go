// Package geocoding resolves free-text destination addresses to coordinates.
package geocoding

import (
	"context"
	"errors"

	"github.com/parkwise/parkwise/internal/parking"
)

// Sentinel errors for geocoding operations.
var (
	// ErrNotFound indicates the provider had no match for the query.
	ErrNotFound = errors.New("address not found")
	// ErrEmptyQuery indicates a blank address was given.
	ErrEmptyQuery = errors.New("empty address query")
	// ErrProviderUnavailable indicates the geocoder is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	// ErrRateLimitExceeded indicates the provider throttled the request.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Provider defines the interface for geocoding providers.
type Provider interface {
	// Geocode returns the best match for the query.
	Geocode(ctx context.Context, query string) (Result, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Result is a resolved address.
type Result struct {
	Coordinate  parking.Coordinate
	DisplayName string
	Provider    string
}

// Error provides detailed error information from the geocoding provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
