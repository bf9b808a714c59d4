package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/config"
	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/handler"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/archive"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/backend"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/cache"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/events"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
	"github.com/yolokazi-cloud/MarketingApp1/internal/ingest"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "budgetd")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
	)

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "marketing-budget-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := backend.OpenStore(startCtx, cfg, logger)
	if err != nil {
		cancelStart()
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore(context.Background())

	if cfg.SeedOnStart {
		if err := service.SeedReference(startCtx, store, logger); err != nil {
			logger.Error("failed to seed reference data", zap.Error(err))
		}
	}
	cancelStart()

	// --- Events ---
	var publisher port.EventPublisher = events.Noop{}
	if cfg.AMQPURL != "" {
		p, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// --- Upload archive ---
	var archiver port.FileArchiver = archive.Noop{}
	if cfg.UploadArchiveBucket != "" {
		g, err := archive.NewGCS(context.Background(), cfg.UploadArchiveBucket, logger)
		if err != nil {
			logger.Warn("upload archive disabled", zap.Error(err))
		} else {
			defer g.Close()
			archiver = g
		}
	}

	// --- Cache ---
	budgetCache := cache.New[domain.BudgetReport](cfg.CacheTTL)
	defer budgetCache.Close()

	// --- Services ---
	services := handler.Services{
		Budget: service.NewBudgetService(store, budgetCache, metrics, logger),
		Ingest: service.NewIngestService(
			store,
			ingest.NewPipeline(logger),
			publisher,
			archiver,
			budgetCache,
			resilience.NewBulkhead(cfg.MaxConcurrency),
			metrics,
			logger,
		),
		Actuals: service.NewActualsService(store, budgetCache, publisher, logger),
	}

	// --- Event subscription: drop the dashboard on writes from other processes ---
	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	if cfg.AMQPURL != "" {
		go events.Listen(listenCtx, cfg.AMQPURL, cfg.AMQPExchange, func(e domain.UploadEvent) {
			services.Budget.Invalidate(e.Type)
		}, logger)
	}

	// --- Router ---
	router := handler.NewRouter(services, metrics, cfg.MaxUploadBytes, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
