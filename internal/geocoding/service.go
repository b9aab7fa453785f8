package geocoding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the geocoding provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Locality is matched case-insensitively against the query; when absent
	// LocalitySuffix is appended (default: "oslo").
	Locality string

	// LocalitySuffix narrows ambiguous street names (default: ", Oslo, Norway").
	LocalitySuffix string

	// CacheTTL is how long to cache lookups (default: 24 hours).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale results on provider errors (default: 7 days).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 1 hour).
	CleanupInterval time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service resolves addresses with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	locality        string
	localitySuffix  string
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	metrics         *providerMetrics

	mu          sync.RWMutex
	cache       map[string]*cachedResult
	lastCleanup time.Time
}

type cachedResult struct {
	result    Result
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	locality := cfg.Locality
	if locality == "" {
		locality = "oslo"
	}

	suffix := cfg.LocalitySuffix
	if suffix == "" {
		suffix = ", Oslo, Norway"
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 7 * 24 * time.Hour
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = time.Hour
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	m, err := newProviderMetrics()
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("geocoding metrics disabled")
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		locality:        strings.ToLower(locality),
		localitySuffix:  suffix,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		now:             now,
		metrics:         m,
		cache:           make(map[string]*cachedResult),
	}
}

// Geocode resolves address to a coordinate.
// Uses cached data if available and not expired.
func (s *Service) Geocode(ctx context.Context, address string) (Result, error) {
	query := s.Qualify(address)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	key := cacheKey(query)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.recordCache(ctx, s.provider.Name(), true)
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for geocode")
		return cached.result, nil
	}
	s.mu.RUnlock()

	s.metrics.recordCache(ctx, s.provider.Name(), false)

	return s.fetch(ctx, query, key)
}

// Qualify trims the address and appends the locality suffix when the
// address does not already mention the locality.
func (s *Service) Qualify(address string) string {
	query := strings.TrimSpace(address)
	if query == "" {
		return ""
	}
	if !strings.Contains(strings.ToLower(query), s.locality) {
		query += s.localitySuffix
	}
	return query
}

func (s *Service) fetch(ctx context.Context, query, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		return cached.result, nil
	}

	s.logger.Debug().
		Str("query", query).
		Str("provider", s.provider.Name()).
		Msg("fetching geocode from provider")

	started := time.Now()
	result, err := s.provider.Geocode(ctx, query)
	s.metrics.recordRequest(ctx, s.provider.Name(), time.Since(started), err)
	if err != nil {
		// A definite miss is not worth a stale answer.
		if cached, ok := s.cache[key]; ok && !errors.Is(err, ErrNotFound) {
			if s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().Err(err).
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", key).
					Msg("serving stale geocode due to provider error")
				return cached.result, nil
			}
		}

		s.logger.Error().Err(err).Str("query", query).Msg("failed to geocode address")
		return Result{}, err
	}

	now := s.now()
	s.cache[key] = &cachedResult{
		result:    result,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.cleanupIfNeeded(now)

	return result, nil
}

// cacheKey lower-cases the query and collapses whitespace.
func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// cleanupIfNeeded removes entries past the stale window. Caller holds mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up expired geocode cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedResult)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := CacheStats{TotalEntries: len(s.cache), Provider: s.provider.Name()}
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			stats.FreshEntries++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stats.StaleEntries++
		}
	}
	return stats
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
