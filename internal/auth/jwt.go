// Package auth issues and validates operator access tokens for catalogue
// maintenance.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Operator tokens are short-lived HS256 JWTs minted out of band (parkctl
// token) and sent as Bearer tokens to the /v1/admin endpoints. There is no
// refresh flow; an operator mints a new token when the old one expires.

// Token defaults.
const (
	// DefaultTokenTTL is how long operator tokens are valid.
	DefaultTokenTTL = 12 * time.Hour

	// MaxTokenTTL bounds the lifetime a caller may request.
	MaxTokenTTL = 7 * 24 * time.Hour

	// DefaultIssuer is the iss claim when none is configured.
	DefaultIssuer = "https://api.parkwise.no"

	// DefaultAudience is the aud claim when none is configured.
	DefaultAudience = "parkwise-api"
)

// Scopes understood by the API.
const (
	// ScopeCatalogueWrite allows creating, replacing and deleting spots.
	ScopeCatalogueWrite = "catalogue:write"
	// ScopeOpsRead allows reading provider status.
	ScopeOpsRead = "ops:read"
)

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSigningKey  = errors.New("signing key is not configured")
	ErrInvalidSubject     = errors.New("token subject is required")
	ErrInvalidTTL         = errors.New("token lifetime out of range")
)

// Claims represents the claims in operator access tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Scope is a space-separated list of granted scopes.
	Scope string `json:"scope,omitempty"`
}

// Scopes returns the granted scopes.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign JWTs.
	SigningKey string

	// Issuer is the issuer claim for tokens (default: DefaultIssuer).
	Issuer string

	// Audience is the audience claim for tokens (default: DefaultAudience).
	Audience string

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	audience := cfg.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     issuer,
		audience:   audience,
		now:        now,
	}
}

// IssueToken creates an access token for subject with the given scopes.
// A zero ttl uses DefaultTokenTTL.
func (s *JWTService) IssueToken(subject string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	if len(s.signingKey) == 0 {
		return "", time.Time{}, ErrMissingSigningKey
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, ErrInvalidSubject
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	if ttl < 0 || ttl > MaxTokenTTL {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		Scope: strings.Join(scopes, " "),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(s.signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidAccessToken)
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
