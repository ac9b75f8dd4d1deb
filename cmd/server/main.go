package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/visitplan/backend/internal/cache"
	"github.com/visitplan/backend/internal/config"
	"github.com/visitplan/backend/internal/db"
	"github.com/visitplan/backend/internal/distance"
	"github.com/visitplan/backend/internal/explain"
	"github.com/visitplan/backend/internal/geocode"
	httpapi "github.com/visitplan/backend/internal/http"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/route"
	"github.com/visitplan/backend/internal/service"
	"github.com/visitplan/backend/internal/simulation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "visitplan").Logger()

	ctx := context.Background()

	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate db")
		}
	} else {
		logger.Info().Msg("DATABASE_URL not set, lookups are not persisted")
	}

	tiers := []cache.Store{cache.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL)}
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		tiers = append(tiers, cache.NewRedisStore(client, "", cfg.CacheTTL))
	}
	if store != nil {
		tiers = append(tiers, cache.NewPostgresStore(store))
	}
	lookups := cache.NewTiered(tiers...)

	m := metrics.New()

	nominatim := geocode.NewNominatimGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderAPIKey, cfg.GeocoderRPS)
	nominatim.RequireKey = cfg.GeocoderKeyNeeded
	geocoder := geocode.NewCachedGeocoder(nominatim, lookups, m, logger)

	var provider distance.Provider = distance.HaversineProvider{}
	if cfg.RoutingURL != "" {
		provider = distance.NewOSRMProvider(cfg.RoutingURL, cfg.RoutingBatchSize, cfg.RoutingRPS, logger)
	} else {
		logger.Info().Msg("using straight-line travel estimates")
	}
	provider = distance.NewCachedProvider(provider, lookups, m, logger)

	var explainer explain.Explainer = explain.Template{}
	if cfg.ExplainerURL != "" {
		explainer = explain.NewHTTPExplainer(cfg.ExplainerURL)
	}

	planner := &service.PlanningService{
		Geocoder: geocoder,
		Builder:  route.NewBuilder(provider, m, logger),
		Resolver: simulation.NewResolver(explainer, m, logger),
		Metrics:  m,
		Logger:   logger,
	}

	router := httpapi.Router(cfg, store, planner, geocoder, lookups, m, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
