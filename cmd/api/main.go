// Package main provides the entrypoint for the parkwise API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkwise/parkwise/internal/api"
	"github.com/parkwise/parkwise/internal/api/handler"
	"github.com/parkwise/parkwise/internal/api/middleware"
	"github.com/parkwise/parkwise/internal/auth"
	"github.com/parkwise/parkwise/internal/database"
	"github.com/parkwise/parkwise/internal/geocoding"
	"github.com/parkwise/parkwise/internal/geocoding/nominatim"
	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/provider/resilience"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
	"github.com/parkwise/parkwise/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "parkwise-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting parkwise API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Tariff zone
	timezone := os.Getenv("PARKING_TIMEZONE")
	if timezone == "" {
		timezone = parking.DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", timezone).Msg("invalid PARKING_TIMEZONE")
	}
	calculator := parking.NewCalculator(parking.Config{Location: loc})

	// Spot catalogue: PostgreSQL when configured, otherwise in memory
	var (
		repo     spot.Repository
		pinger   handler.Pinger
		poolDone = func() {}
	)
	if database.Configured() {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		poolDone = pool.Close
		repo = spot.NewPostgresRepository(pool)
		pinger = pool
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	} else {
		repo = spot.NewInMemoryRepository()
		log.Warn().Msg("no database configured - using in-memory spot catalogue")
	}
	defer poolDone()

	catalogue := spot.NewService(repo, log)

	if path := os.Getenv("CATALOGUE_SEED_FILE"); path != "" {
		if err := seedCatalogue(ctx, catalogue, path, log); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to seed catalogue")
		}
	}

	// Geocoding
	providers := resilience.NewRegistry()
	geocoder := geocoding.NewService(geocoding.ServiceConfig{
		Provider: nominatim.NewClient(nominatim.ClientConfig{
			BaseURL:      os.Getenv("GEOCODER_BASE_URL"),
			UserAgent:    os.Getenv("GEOCODER_USER_AGENT"),
			CountryCodes: "no",
			Registry:     providers,
			Logger:       log,
		}),
		Logger: log,
	})
	log.Info().Str("provider", geocoder.ProviderName()).Msg("geocoding service initialized")

	rankingService := ranking.NewService(ranking.Config{
		Calculator: calculator,
		Catalogue:  catalogue,
		Geocoder:   geocoder,
		Logger:     log,
	})

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
		Tokens:      jwtService,
		Ranking:     rankingService,
		Catalogue:   catalogue,
		Database:    pinger,
		Providers:   providers,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("timezone", loc.String()).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// seedCatalogue loads a JSON catalogue file into the store at startup.
// Malformed and invalid records are logged and skipped.
func seedCatalogue(ctx context.Context, catalogue *spot.Service, path string, log zerolog.Logger) error {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return err
	}
	defer f.Close()

	spots, rejected, err := spot.ReadCatalogue(f)
	if err != nil {
		return err
	}
	for _, re := range rejected {
		log.Warn().Int("index", re.Index).Int64("spot_id", re.SpotID).Err(re.Err).Msg("skipping malformed seed spot")
	}
	for _, sp := range spots {
		if _, err := catalogue.Upsert(ctx, sp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Int64("spot_id", sp.ID).Err(err).Msg("skipping invalid seed spot")
		}
	}
	return nil
}
