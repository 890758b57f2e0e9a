package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adargal/pelles/config"
	httpDelivery "github.com/adargal/pelles/internal/delivery/http"
	"github.com/adargal/pelles/internal/domain"
	"github.com/adargal/pelles/internal/infrastructure/cache"
	"github.com/adargal/pelles/internal/infrastructure/scraper"
	"github.com/adargal/pelles/internal/infrastructure/session"
	"github.com/adargal/pelles/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg.Log)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Msg("starting pelles backend")

	// Search result cache
	var searchCache domain.SearchCache
	var sqliteCache *cache.SQLiteCache
	switch cfg.Cache.Type {
	case "sqlite":
		sqliteCache, err = cache.NewSQLiteCache(cfg.Cache.Path, cfg.Cache.TTL())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open search cache")
		}
		searchCache = sqliteCache
	default:
		searchCache = cache.NewMemoryCache(cfg.Cache.TTL())
	}

	// Store scrapers, in configured order
	scrapers := make([]domain.Scraper, 0, len(cfg.Stores))
	for _, store := range cfg.Stores {
		s, err := buildScraper(store, cfg.Scraper)
		if err != nil {
			logger.Warn().Err(err).Str("store", store.ID).Msg("skipping store")
			continue
		}
		scrapers = append(scrapers, s)
	}
	if len(scrapers) == 0 {
		logger.Fatal().Msg("no usable stores configured")
	}

	// Usecase layer
	searchService := usecase.NewSearchService(searchCache, scrapers, usecase.SearchConfig{
		ScraperDelay:   cfg.Scraper.Delay(),
		ScraperTimeout: cfg.Scraper.Timeout(),
		MaxResults:     cfg.Scraper.MaxResults,
	})
	matcher := usecase.NewMatcherService(usecase.MatcherConfig{
		HighThreshold:   cfg.Matching.HighThreshold,
		MediumThreshold: cfg.Matching.MediumThreshold,
	})
	sessions := session.NewMemoryStore(cfg.Cache.TTL())
	comparisonService := usecase.NewComparisonService(searchService, matcher, sessions, usecase.ComparisonConfig{
		MinCoverage: cfg.Matching.MinCoverage,
	})

	logger.Info().
		Float64("high_threshold", cfg.Matching.HighThreshold).
		Float64("medium_threshold", cfg.Matching.MediumThreshold).
		Float64("min_coverage", cfg.Matching.MinCoverage).
		Int("stores", len(scrapers)).
		Msg("matching configured")

	handler := httpDelivery.NewHandler(comparisonService, searchService)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}
	logger.Info().Str("addr", srv.Addr).Msg("server listening")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	if sqliteCache != nil {
		if err := sqliteCache.Close(); err != nil {
			logger.Error().Err(err).Msg("closing search cache")
		}
	}
}

// buildScraper constructs the scraper implementation for a configured store.
func buildScraper(store config.StoreConfig, cfg config.ScraperConfig) (domain.Scraper, error) {
	switch store.ID {
	case "shufersal":
		return scraper.NewShufersalClient(store.BaseURL, cfg.MaxResults, cfg.Timeout()), nil
	case "super_hefer":
		return scraper.NewSuperHeferClient(store.BaseURL, store.CookieFile, cfg.MaxResults, cfg.Timeout())
	default:
		return nil, fmt.Errorf("no scraper implementation for store %q", store.ID)
	}
}
