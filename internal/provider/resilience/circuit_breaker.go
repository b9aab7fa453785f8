// Package resilience wraps outbound provider calls with circuit breakers,
// timeouts, retries and health tracking.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and health reports.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the closed-state counts periodically so isolated
	// failures spread over hours never trip the breaker.
	// Default: 5 minutes
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip decides when to open. Default: TripAfter(5, 0.5).
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every transition. When nil and a logger
	// is supplied to the client, transitions are logged.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the configuration used for geocoding
// providers.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// TripAfter returns a ReadyToTrip func that opens once at least
// minRequests have been seen and the failure ratio reaches ratio.
func TripAfter(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < minRequests || counts.Requests == 0 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// DefaultReadyToTrip opens after 5 requests at a 50% failure rate.
var DefaultReadyToTrip = TripAfter(5, 0.5)

// LogStateChanges returns an OnStateChange hook writing transitions to
// logger. Opening is logged as a warning, recovery as info.
func LogStateChanges(logger zerolog.Logger) func(string, gobreaker.State, gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		event := logger.Info()
		if to == gobreaker.StateOpen {
			event = logger.Warn()
		}
		event.
			Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
