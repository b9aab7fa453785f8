// Package nominatim provides a client for the OpenStreetMap Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/geocoding"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultUserAgent identifies the service as the usage policy requires.
	DefaultUserAgent = "parkwise/1.0"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the public instance).
	BaseURL string

	// UserAgent is sent with every request (optional).
	UserAgent string

	// CountryCodes restricts matches, e.g. "no" (optional).
	CountryCodes string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 5s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim search client.
type Client struct {
	baseURL      string
	userAgent    string
	countryCodes string
	httpClient   HTTPDoer
	logger       zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.UserAgent = userAgent
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:      baseURL,
		userAgent:    userAgent,
		countryCodes: cfg.CountryCodes,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type place struct {
	Lat         float64 `json:"lat,string"`
	Lon         float64 `json:"lon,string"`
	DisplayName string  `json:"display_name"`
}

// Geocode looks up the first match for query.
func (c *Client) Geocode(ctx context.Context, query string) (geocoding.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return geocoding.Result{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().
		Str("query", query).
		Msg("requesting geocode from nominatim")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return geocoding.Result{}, &geocoding.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach geocoding provider",
			Err:      geocoding.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geocoding.Result{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return geocoding.Result{}, statusError(resp.StatusCode)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return geocoding.Result{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(places) == 0 {
		return geocoding.Result{}, &geocoding.Error{
			Provider: ProviderName,
			Code:     "NO_MATCH",
			Message:  fmt.Sprintf("no match for %q", query),
			Err:      geocoding.ErrNotFound,
		}
	}

	hit := places[0]
	coord := parking.Coordinate{Lat: hit.Lat, Lon: hit.Lon}
	if err := parking.ValidateCoordinate(coord); err != nil {
		return geocoding.Result{}, fmt.Errorf("provider returned %w", err)
	}

	return geocoding.Result{
		Coordinate:  coord,
		DisplayName: hit.DisplayName,
		Provider:    ProviderName,
	}, nil
}

func statusError(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &geocoding.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "geocoding rate limit exceeded, please try again later",
			Err:      geocoding.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusForbidden:
		return &geocoding.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "geocoding access denied - check user agent configuration",
			Err:      geocoding.ErrProviderUnavailable,
		}
	case statusCode >= 500:
		return &geocoding.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "geocoding provider is temporarily unavailable",
			Err:      geocoding.ErrProviderUnavailable,
		}
	default:
		return &geocoding.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("geocoding provider returned status %d", statusCode),
			Err:      geocoding.ErrProviderUnavailable,
		}
	}
}
