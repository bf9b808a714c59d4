// Package backend opens the store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/config"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/memory"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/mongostore"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/supabase"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
)

// OpenStore returns the configured store and a function releasing it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.Store, func(context.Context) error, error) {
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	noClose := func(context.Context) error { return nil }

	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), noClose, nil

	case config.BackendMongo:
		cb := resilience.NewCircuitBreaker("mongo", logger)
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cb, resilienceCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		cb := resilience.NewCircuitBreaker("supabase", logger)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		client := supabase.NewClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, cb, resilienceCfg, logger)
		return client, noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
