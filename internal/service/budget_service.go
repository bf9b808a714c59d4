// Package service provides the business logic layer (use cases): upload
// versioning, rebuilds, actual record maintenance and the budget dashboard.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
)

var tracer = otel.Tracer("service")

// budgetCacheKey holds the whole dashboard; every canonical write drops it.
const budgetCacheKey = "budget"

// BudgetService serves the dashboard and the reference tables.
type BudgetService struct {
	store   port.Store
	cache   port.Cache[domain.BudgetReport]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewBudgetService creates the dashboard service with all dependencies injected.
func NewBudgetService(store port.Store, cache port.Cache[domain.BudgetReport], metrics *observability.Metrics, logger *zap.Logger) *BudgetService {
	return &BudgetService{store: store, cache: cache, metrics: metrics, logger: logger}
}

// GetBudget returns the per cost center dashboard. The four collections are
// read concurrently and the result is cached until the next write. A report
// whose reads overlapped a write is returned but not cached.
func (s *BudgetService) GetBudget(ctx context.Context) (domain.BudgetReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "BudgetService.GetBudget")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("budget", time.Since(start))
	}()

	gen := s.cache.Generation()
	if cached, ok := s.cache.Get(budgetCacheKey); ok {
		s.metrics.IncrCacheHit("budget")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.IncrCacheMiss("budget")

	var (
		centers      []domain.CostCenter
		accounts     []domain.AccountSpendType
		actuals      []domain.ActualRecord
		anticipateds []domain.AnticipatedRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		centers, err = s.store.ListCostCenters(gCtx)
		return s.readFailed("cost centers", err)
	})
	g.Go(func() error {
		var err error
		accounts, err = s.store.ListAccountSpendTypes(gCtx)
		return s.readFailed("account spend types", err)
	})
	g.Go(func() error {
		var err error
		actuals, err = s.store.ListActuals(gCtx)
		return s.readFailed("actuals", err)
	})
	g.Go(func() error {
		var err error
		anticipateds, err = s.store.ListAnticipateds(gCtx)
		return s.readFailed("anticipateds", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		s.logger.Warn("no account spend types found, spend categorization may be incomplete")
	}

	report := AggregateBudget(centers, accounts, actuals, anticipateds)
	if !s.cache.SetIfUnchanged(budgetCacheKey, report, gen) {
		s.logger.Debug("data changed while aggregating, report not cached")
	}

	span.SetAttributes(
		attribute.Int("cost_centers", len(report)),
		attribute.Int("actuals", len(actuals)),
		attribute.Int("anticipateds", len(anticipateds)),
	)
	s.logger.Debug("budget aggregated",
		zap.Int("cost_centers", len(report)),
		zap.Int("actuals", len(actuals)),
		zap.Int("anticipateds", len(anticipateds)),
	)
	return report, nil
}

// Invalidate drops the cached dashboard. It is called for changes made
// outside this process, e.g. by another instance or the seed command.
func (s *BudgetService) Invalidate(reason string) {
	s.cache.Delete(budgetCacheKey)
	s.logger.Debug("budget cache invalidated", zap.String("reason", reason))
}

func (s *BudgetService) readFailed(what string, err error) error {
	if err == nil {
		return nil
	}
	s.metrics.IncrStoreError(s.store.Name())
	s.logger.Error("failed to read "+what, zap.Error(err))
	return domain.AsPersistence("read "+what, err)
}

func (s *BudgetService) ListCostCenters(ctx context.Context) ([]domain.CostCenter, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.ListCostCenters")
	defer span.End()

	return s.store.ListCostCenters(ctx)
}

func (s *BudgetService) ListAccounts(ctx context.Context) ([]domain.AccountSpendType, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.ListAccounts")
	defer span.End()

	return s.store.ListAccountSpendTypes(ctx)
}

// Health pings the store and reports its latency.
func (s *BudgetService) Health(ctx context.Context) domain.ServiceHealth {
	start := time.Now()
	status := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		status = "unhealthy"
		s.logger.Warn("store ping failed", zap.String("store", s.store.Name()), zap.Error(err))
	}
	return domain.ServiceHealth{
		Name:        s.store.Name(),
		Status:      status,
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
}
