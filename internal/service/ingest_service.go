package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
	"github.com/yolokazi-cloud/MarketingApp1/internal/ingest"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
)

// maxVersionAttempts bounds retries when a concurrent writer took the
// next version number.
const maxVersionAttempts = 5

// IngestService turns uploaded spreadsheets into numbered versions and
// canonical records, and rebuilds a kind from its surviving versions.
type IngestService struct {
	store     port.Store
	pipeline  *ingest.Pipeline
	publisher port.EventPublisher
	archiver  port.FileArchiver
	cache     port.Cache[domain.BudgetReport]
	bulkhead  *resilience.Bulkhead
	locks     *kindLocks
	metrics   *observability.Metrics
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewIngestService creates the ingestion service with all dependencies injected.
func NewIngestService(
	store port.Store,
	pipeline *ingest.Pipeline,
	publisher port.EventPublisher,
	archiver port.FileArchiver,
	cache port.Cache[domain.BudgetReport],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:     store,
		pipeline:  pipeline,
		publisher: publisher,
		archiver:  archiver,
		cache:     cache,
		bulkhead:  bulkhead,
		locks:     newKindLocks(),
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Upload validates the spreadsheet in data, saves it as the next version of
// kind and inserts its canonical records. Any row error rejects the upload
// with *domain.ErrValidationFailed; nothing is stored in that case.
func (s *IngestService) Upload(ctx context.Context, kind domain.RecordKind, fileName string, data []byte) (*domain.UploadResult, error) {
	ctx, span := tracer.Start(ctx, "IngestService.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("file.name", fileName),
		attribute.Int("file.bytes", len(data)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("upload_"+string(kind), time.Since(start))
	}()

	if len(data) == 0 {
		s.metrics.RecordUpload(kind, "rejected")
		return nil, &domain.ErrUploadEmpty{}
	}

	prepared, err := s.prepare(ctx, kind, data)
	if err != nil {
		s.metrics.RecordUpload(kind, "rejected")
		s.logger.Info("upload rejected",
			zap.String("kind", string(kind)),
			zap.String("file", fileName),
			zap.Error(err),
		)
		return nil, err
	}

	versionID := s.newID()
	batch := s.pipeline.Transform(kind, prepared.Rows(), versionID)
	if batch.Len() == 0 {
		s.metrics.RecordUpload(kind, "rejected")
		return nil, &domain.ErrNoValidRows{Kind: kind}
	}
	s.assignIDs(&batch)

	archiveURI, err := s.archiver.Archive(ctx, kind, versionID, fileName, data)
	if err != nil {
		s.logger.Warn("failed to archive upload, continuing without it",
			zap.String("kind", string(kind)),
			zap.String("version_id", versionID),
			zap.Error(err),
		)
	}

	unlock := s.locks.lock(kind)
	defer unlock()
	// Dropped on every path that may have written, rollbacks included.
	defer s.cache.Delete(budgetCacheKey)

	version := &domain.UploadVersion{
		ID:         versionID,
		Kind:       kind,
		UploadedAt: s.now(),
		FileName:   fileName,
		ArchiveURI: archiveURI,
		Rows:       prepared.Rows(),
	}
	if err := s.createVersion(ctx, version); err != nil {
		s.metrics.RecordUpload(kind, "error")
		s.metrics.IncrStoreError(s.store.Name())
		return nil, domain.AsPersistence("create version", err)
	}
	s.logger.Info("saved upload version",
		zap.String("kind", string(kind)),
		zap.Int("version", version.VersionNumber),
		zap.String("version_id", versionID),
	)

	if err := s.insert(ctx, kind, batch); err != nil {
		s.metrics.RecordUpload(kind, "error")
		s.metrics.IncrStoreError(s.store.Name())
		s.compensate(ctx, kind, versionID)
		return nil, domain.AsPersistence("insert records", err)
	}

	s.metrics.RecordUpload(kind, "success")
	s.metrics.RecordRows(kind, batch.Len(), batch.Dropped)
	s.metrics.RecordCorrections(kind, len(prepared.Corrections))
	s.metrics.SetLatestVersion(kind, version.VersionNumber)

	s.publish(ctx, domain.UploadEvent{
		Type:          domain.EventUploadCreated,
		Kind:          kind,
		VersionID:     versionID,
		VersionNumber: version.VersionNumber,
		FileName:      fileName,
		Inserted:      batch.Len(),
		Dropped:       batch.Dropped,
		OccurredAt:    s.now(),
	})

	span.SetAttributes(attribute.Int("version", version.VersionNumber), attribute.Int("inserted", batch.Len()))
	return &domain.UploadResult{
		Message:       fmt.Sprintf("Successfully uploaded and processed %d records. Saved as version %d.", batch.Len(), version.VersionNumber),
		Inserted:      batch.Len(),
		Dropped:       batch.Dropped,
		VersionID:     versionID,
		VersionNumber: version.VersionNumber,
		Corrections:   prepared.Corrections,
	}, nil
}

// prepare decodes the workbook inside the bulkhead and runs header
// resolution and validation.
func (s *IngestService) prepare(ctx context.Context, kind domain.RecordKind, data []byte) (*ingest.Prepared, error) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	grid, err := ingest.ReadGrid(data)
	if err != nil {
		return nil, &domain.ErrInvalidSpreadsheet{Err: err}
	}
	return s.pipeline.Prepare(kind, grid)
}

// createVersion numbers v as latest+1, retrying when another writer took
// that number first.
func (s *IngestService) createVersion(ctx context.Context, v *domain.UploadVersion) error {
	for attempt := 1; attempt <= maxVersionAttempts; attempt++ {
		latest, err := s.store.LatestVersionNumber(ctx, v.Kind)
		if err != nil {
			return err
		}
		v.VersionNumber = latest + 1

		err = s.store.CreateVersion(ctx, v)
		var dup *domain.ErrDuplicate
		if !errors.As(err, &dup) {
			return err
		}
		s.logger.Warn("version number taken, retrying",
			zap.String("kind", string(v.Kind)),
			zap.Int("version", v.VersionNumber),
			zap.Int("attempt", attempt),
		)
	}
	return &domain.ErrDuplicate{Key: fmt.Sprintf("%s version %d", v.Kind, v.VersionNumber)}
}

func (s *IngestService) assignIDs(b *ingest.Batch) {
	for i := range b.Actuals {
		b.Actuals[i].ID = s.newID()
	}
	for i := range b.Anticipateds {
		b.Anticipateds[i].ID = s.newID()
	}
}

func (s *IngestService) insert(ctx context.Context, kind domain.RecordKind, b ingest.Batch) error {
	switch kind {
	case domain.KindActuals:
		if len(b.Actuals) == 0 {
			return nil
		}
		return s.store.InsertActuals(ctx, b.Actuals)
	case domain.KindAnticipateds:
		if len(b.Anticipateds) == 0 {
			return nil
		}
		return s.store.InsertAnticipateds(ctx, b.Anticipateds)
	}
	return nil
}

func (s *IngestService) deleteRecordsOfVersion(ctx context.Context, kind domain.RecordKind, versionID string) error {
	if kind == domain.KindActuals {
		return s.store.DeleteActualsByVersion(ctx, versionID)
	}
	return s.store.DeleteAnticipatedsByVersion(ctx, versionID)
}

func (s *IngestService) deleteAllRecords(ctx context.Context, kind domain.RecordKind) error {
	if kind == domain.KindActuals {
		return s.store.DeleteAllActuals(ctx)
	}
	return s.store.DeleteAllAnticipateds(ctx)
}

// compensate removes what a failed upload left behind. It runs on a fresh
// context so a cancelled request still cleans up.
func (s *IngestService) compensate(ctx context.Context, kind domain.RecordKind, versionID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.deleteRecordsOfVersion(ctx, kind, versionID); err != nil {
		s.logger.Error("compensation: failed to delete partial records",
			zap.String("kind", string(kind)),
			zap.String("version_id", versionID),
			zap.Error(err),
		)
	}
	if err := s.store.DeleteVersion(ctx, kind, versionID); err != nil {
		s.logger.Error("compensation: failed to delete version",
			zap.String("kind", string(kind)),
			zap.String("version_id", versionID),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("rolled back failed upload",
		zap.String("kind", string(kind)),
		zap.String("version_id", versionID),
	)
}

func (s *IngestService) publish(ctx context.Context, event domain.UploadEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}

// ============================================================
// Version history
// ============================================================

// ListVersions returns the versions of kind newest first, without rows.
func (s *IngestService) ListVersions(ctx context.Context, kind domain.RecordKind) ([]domain.UploadVersion, error) {
	ctx, span := tracer.Start(ctx, "IngestService.ListVersions")
	defer span.End()

	versions, err := s.store.ListVersions(ctx, kind, false)
	if err != nil {
		return nil, domain.AsPersistence("list versions", err)
	}
	out := make([]domain.UploadVersion, len(versions))
	for i, v := range versions {
		out[len(versions)-1-i] = v.Summary()
	}
	return out, nil
}

// GetVersion returns one version with its row snapshot.
func (s *IngestService) GetVersion(ctx context.Context, kind domain.RecordKind, id string) (*domain.UploadVersion, error) {
	ctx, span := tracer.Start(ctx, "IngestService.GetVersion")
	defer span.End()
	span.SetAttributes(attribute.String("version.id", id))

	v, err := s.store.GetVersion(ctx, kind, id)
	if err != nil {
		return nil, domain.AsPersistence("get version", err)
	}
	return v, nil
}

// UpdateRecordInVersion replaces one row of a stored snapshot. Canonical
// records are left alone until the next rebuild of kind.
func (s *IngestService) UpdateRecordInVersion(ctx context.Context, kind domain.RecordKind, id string, index int, row domain.Row) (domain.Row, error) {
	ctx, span := tracer.Start(ctx, "IngestService.UpdateRecordInVersion")
	defer span.End()
	span.SetAttributes(attribute.String("version.id", id), attribute.Int("index", index))

	if row == nil {
		return nil, &domain.ErrValidation{Field: "record", Message: "record body is required"}
	}

	unlock := s.locks.lock(kind)
	defer unlock()

	if err := s.store.UpdateVersionRow(ctx, kind, id, index, row); err != nil {
		return nil, domain.AsPersistence("update version row", err)
	}
	s.logger.Info("updated version row",
		zap.String("kind", string(kind)),
		zap.String("version_id", id),
		zap.Int("index", index),
	)
	return row, nil
}

// DeleteVersion removes a version and rebuilds kind from the survivors.
func (s *IngestService) DeleteVersion(ctx context.Context, kind domain.RecordKind, id string) (*domain.RebuildResult, error) {
	ctx, span := tracer.Start(ctx, "IngestService.DeleteVersion")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.String("version.id", id))

	unlock := s.locks.lock(kind)
	defer unlock()

	if err := s.store.DeleteVersion(ctx, kind, id); err != nil {
		return nil, domain.AsPersistence("delete version", err)
	}
	s.logger.Info("deleted version, rebuilding collection",
		zap.String("kind", string(kind)),
		zap.String("version_id", id),
	)

	result, err := s.rebuild(ctx, kind)
	if err != nil {
		return nil, err
	}
	result.Message = "Version deleted and data rebuilt successfully."

	s.publish(ctx, domain.UploadEvent{
		Type:       domain.EventVersionDeleted,
		Kind:       kind,
		VersionID:  id,
		Inserted:   result.Inserted,
		Dropped:    result.Dropped,
		OccurredAt: s.now(),
	})
	return result, nil
}

// Rebuild regenerates the canonical records of kind from every version.
func (s *IngestService) Rebuild(ctx context.Context, kind domain.RecordKind) (*domain.RebuildResult, error) {
	ctx, span := tracer.Start(ctx, "IngestService.Rebuild")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)))

	unlock := s.locks.lock(kind)
	defer unlock()

	result, err := s.rebuild(ctx, kind)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.UploadEvent{
		Type:       domain.EventRebuilt,
		Kind:       kind,
		Inserted:   result.Inserted,
		Dropped:    result.Dropped,
		OccurredAt: s.now(),
	})
	return result, nil
}
