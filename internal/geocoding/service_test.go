package geocoding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/parking"
)

// mockProvider is a mock geocoding provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	result    Result
	err       error
	lastQuery string
	callCount atomic.Int32
	delay     time.Duration
}

func (m *mockProvider) Geocode(_ context.Context, query string) (Result, error) {
	m.callCount.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = query
	if m.err != nil {
		return Result{}, m.err
	}
	return m.result, nil
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var karlJohan = Result{
	Coordinate:  parking.Coordinate{Lat: 59.9113, Lon: 10.7517},
	DisplayName: "Karl Johans gate, Oslo",
	Provider:    "mock",
}

func TestService_Qualify(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{}, Logger: zerolog.Nop()})

	tests := []struct {
		in   string
		want string
	}{
		{"Karl Johans gate 1", "Karl Johans gate 1, Oslo, Norway"},
		{"  Storgata 5, OSLO ", "Storgata 5, OSLO"},
		{"Bogstadveien, Oslo", "Bogstadveien, Oslo"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := service.Qualify(tt.in); got != tt.want {
			t.Errorf("Qualify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestService_Geocode_CachesNormalisedQuery(t *testing.T) {
	provider := &mockProvider{result: karlJohan}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	for _, q := range []string{"Karl Johans gate 1", "karl  johans GATE 1", " Karl Johans gate 1 "} {
		got, err := service.Geocode(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Coordinate != karlJohan.Coordinate {
			t.Errorf("got %+v, want %+v", got.Coordinate, karlJohan.Coordinate)
		}
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
	if provider.lastQuery != "Karl Johans gate 1, Oslo, Norway" {
		t.Errorf("unexpected provider query %q", provider.lastQuery)
	}
}

func TestService_Geocode_EmptyQuery(t *testing.T) {
	provider := &mockProvider{result: karlJohan}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.Geocode(context.Background(), "  ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if provider.callCount.Load() != 0 {
		t.Error("provider should not be called for an empty query")
	}
}

func TestService_Geocode_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)}
	provider := &mockProvider{result: karlJohan}
	service := NewService(ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Hour,
		Now:      clock.Now,
	})

	if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls after expiry, got %d", provider.callCount.Load())
	}
}

func TestService_Geocode_StaleIfError(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)}
	provider := &mockProvider{result: karlJohan}
	service := NewService(ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        time.Hour,
		StaleIfErrorTTL: 24 * time.Hour,
		Now:             clock.Now,
	})

	if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(2 * time.Hour)
	provider.setErr(&Error{Provider: "mock", Code: "SERVER_503", Message: "down", Err: ErrProviderUnavailable})

	got, err := service.Geocode(context.Background(), "Karl Johans gate 1")
	if err != nil {
		t.Fatalf("expected stale result, got error: %v", err)
	}
	if got.Coordinate != karlJohan.Coordinate {
		t.Errorf("stale result mismatch: %+v", got)
	}

	stats := service.CacheStats()
	if stats.StaleEntries != 1 || stats.FreshEntries != 0 {
		t.Errorf("unexpected cache stats: %+v", stats)
	}

	clock.Advance(48 * time.Hour)
	if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected provider error past stale window, got %v", err)
	}
}

func TestService_Geocode_NotFoundIsNotMaskedByStale(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)}
	provider := &mockProvider{result: karlJohan}
	service := NewService(ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Hour,
		Now:      clock.Now,
	})

	if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(2 * time.Hour)
	provider.setErr(&Error{Provider: "mock", Code: "NO_MATCH", Message: "no match", Err: ErrNotFound})

	if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Geocode_ConcurrentCallersShareFetch(t *testing.T) {
	provider := &mockProvider{result: karlJohan, delay: 20 * time.Millisecond}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Geocode(context.Background(), "Karl Johans gate 1"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if provider.callCount.Load() != 1 {
		t.Errorf("expected a single provider call, got %d", provider.callCount.Load())
	}
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{result: karlJohan}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, _ = service.Geocode(context.Background(), "Karl Johans gate 1")
	service.InvalidateCache()
	_, _ = service.Geocode(context.Background(), "Karl Johans gate 1")

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.callCount.Load())
	}
	if service.ProviderName() != "mock" {
		t.Errorf("unexpected provider name %q", service.ProviderName())
	}
}
