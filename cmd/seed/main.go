// Command seed loads the reference tables and, with -samples, replaces the
// canonical records with a small demo data set. When AMQP_URL is set it
// announces the change so running API instances drop their cached dashboard.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/config"
	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/backend"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/events"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

func main() {
	samples := flag.Bool("samples", false, "also replace actuals and anticipateds with demo records")
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel, "seed")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, closeStore, err := backend.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore(context.Background())

	if err := service.SeedReference(ctx, store, logger); err != nil {
		logger.Fatal("seeding reference data failed", zap.Error(err))
	}
	if *samples {
		if err := service.SeedSamples(ctx, store, logger); err != nil {
			logger.Fatal("seeding sample records failed", zap.Error(err))
		}
	}
	logger.Info("database seeding completed", zap.String("store", store.Name()))

	if cfg.AMQPURL == "" {
		return
	}
	publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		logger.Warn("could not announce seeding, running instances keep their cache until it expires", zap.Error(err))
		return
	}
	defer publisher.Close()
	if err := publisher.Publish(ctx, domain.UploadEvent{Type: domain.EventDataSeeded, OccurredAt: time.Now().UTC()}); err != nil {
		logger.Warn("failed to announce seeding", zap.Error(err))
	}
}
