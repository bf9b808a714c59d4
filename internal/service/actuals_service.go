package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/ingest"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
)

// ActualsService maintains individual actual records outside of uploads.
// Manual records carry no version and disappear on the next actuals rebuild.
type ActualsService struct {
	store     port.ActualStore
	cache     port.Cache[domain.BudgetReport]
	publisher port.EventPublisher
	logger    *zap.Logger
}

// NewActualsService creates a new actuals service.
func NewActualsService(store port.ActualStore, cache port.Cache[domain.BudgetReport], publisher port.EventPublisher, logger *zap.Logger) *ActualsService {
	return &ActualsService{store: store, cache: cache, publisher: publisher, logger: logger}
}

// changed drops the dashboard and tells other instances about the write.
func (s *ActualsService) changed(ctx context.Context, id string) {
	s.cache.Delete(budgetCacheKey)
	event := domain.UploadEvent{
		Type:       domain.EventActualChanged,
		Kind:       domain.KindActuals,
		RecordID:   id,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *ActualsService) List(ctx context.Context) ([]domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "ActualsService.List")
	defer span.End()

	recs, err := s.store.ListActuals(ctx)
	if err != nil {
		return nil, domain.AsPersistence("list actuals", err)
	}
	return recs, nil
}

// Create stores a new record built from input.
func (s *ActualsService) Create(ctx context.Context, input domain.Row) (*domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "ActualsService.Create")
	defer span.End()

	rec, err := ingest.ActualFromInput(input)
	if err != nil {
		return nil, err
	}
	rec.ID = uuid.NewString()

	if err := s.store.CreateActual(ctx, &rec); err != nil {
		return nil, domain.AsPersistence("create actual", err)
	}
	s.changed(ctx, rec.ID)
	s.logger.Info("actual record added", zap.Int64("cost_center", rec.CostCenter), zap.String("id", rec.ID))
	return &rec, nil
}

// Update replaces every field of record id with input. The version tag is kept.
func (s *ActualsService) Update(ctx context.Context, id string, input domain.Row) (*domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "ActualsService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("actual.id", id))

	rec, err := ingest.ActualFromInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetActual(ctx, id)
	if err != nil {
		return nil, domain.AsPersistence("get actual", err)
	}
	rec.ID = id
	rec.VersionID = existing.VersionID

	if err := s.store.UpdateActual(ctx, &rec); err != nil {
		return nil, domain.AsPersistence("update actual", err)
	}
	s.changed(ctx, id)
	s.logger.Info("actual record updated", zap.String("id", id))
	return &rec, nil
}

func (s *ActualsService) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "ActualsService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("actual.id", id))

	if err := s.store.DeleteActual(ctx, id); err != nil {
		return domain.AsPersistence("delete actual", err)
	}
	s.changed(ctx, id)
	s.logger.Info("actual record deleted", zap.String("id", id))
	return nil
}
