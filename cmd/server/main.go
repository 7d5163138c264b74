package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"marketgo/internal/delivery"
	"marketgo/internal/domain"
	"marketgo/internal/infrastructure"
	"marketgo/internal/usecase"
	"marketgo/pkg/config"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting marketing report service")

	m := metrics.New()

	// Platform adapters come up disconnected when credentials are
	// absent; that is a normal state, not a startup failure.
	googleAds := infrastructure.NewGoogleAdsAdapter(cfg.Ads.GoogleAds, cfg.Ads.RequestTimeout, cfg.Ads.RateLimitPerSecond, log, m)
	metaAds := infrastructure.NewMetaAdsAdapter(cfg.Ads.MetaAds, cfg.Ads.RequestTimeout, cfg.Ads.RateLimitPerSecond, log, m)

	aggregator := usecase.NewAggregator(log, m, googleAds, metaAds)

	var store domain.CampaignStore
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		pool, err := infrastructure.NewPostgresPool(ctx, cfg.Database.URL)
		if err != nil {
			cancel()
			log.WithError(err).Error("Failed to connect to database")
			os.Exit(1)
		}
		defer pool.Close()

		pgStore := infrastructure.NewPostgresStore(pool, log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cancel()
			log.WithError(err).Error("Failed to prepare database schema")
			os.Exit(1)
		}
		cancel()
		store = pgStore
		log.Info("Using postgres campaign store")
	} else {
		store = infrastructure.NewMemoryStore(log)
		log.Warn("DATABASE_URL not set, using in-memory campaign store")
	}

	generator := infrastructure.NewOpenAIClient(cfg.OpenAI, cfg.Ads.RequestTimeout, log, m)
	reportService := usecase.NewReportService(store, generator, aggregator, log, m)

	handlers := delivery.NewHTTPHandlers(reportService, aggregator, googleAds, metaAds, cfg.Ads, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m)

	engine := router.SetupRoutes()

	addr := ":" + cfg.Server.Port
	log.WithField("addr", addr).Info("HTTP server listening")
	if err := engine.Run(addr); err != nil {
		log.WithError(err).Error("Server stopped")
		os.Exit(1)
	}
}
