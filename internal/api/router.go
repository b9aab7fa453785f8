// Package api provides the HTTP API for parkwise.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api/handler"
	"github.com/parkwise/parkwise/internal/api/middleware"
	"github.com/parkwise/parkwise/internal/auth"
	"github.com/parkwise/parkwise/internal/provider/resilience"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Tokens    middleware.TokenValidator
	Ranking   *ranking.Service
	Catalogue *spot.Service

	// Database and Providers feed the ops endpoints; both are optional.
	Database  handler.Pinger
	Providers *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "parkwise-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))        // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))      // Panic recovery
	r.Use(chimiddleware.RealIP)                 // Real IP extraction
	r.Use(middleware.SecurityHeaders)           // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)           // JSON content type
	r.Use(middleware.RequireJSON)               // Reject non-JSON bodies

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Providers: cfg.Providers,
		Logger:    cfg.Logger,
	})
	parkingHandler := handler.NewParkingHandler(cfg.Ranking, cfg.Catalogue, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.Catalogue, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Tokens)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public, status needs an operator token)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware, middleware.RequireScope(auth.ScopeOpsRead)).Get("/status", opsHandler.SystemStatus)
		})

		// Ranking scores the whole catalogue - strict rate limiting
		r.With(expensiveRateLimit).Post("/parking:rank", parkingHandler.Rank)

		r.Route("/parking/spots", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", parkingHandler.ListSpots)
			r.Get("/{slugOrId}", parkingHandler.GetSpot)
			r.Post("/{spotId}/cost", parkingHandler.Cost)
		})

		// Admin endpoints (operator tokens) - catalogue maintenance
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireScope(auth.ScopeCatalogueWrite))
			r.Use(middleware.RateLimitByOperator(middleware.AdminRateLimit)) // 20 req/min per operator

			r.Put("/spots/{spotId}", adminHandler.UpsertSpot)
			r.Delete("/spots/{spotId}", adminHandler.DeleteSpot)
		})
	})

	return r
}
