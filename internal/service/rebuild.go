package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// rebuild empties the canonical collection of kind, manual actuals
// included, and replays every surviving version in ascending order.
// The caller holds the kind lock.
func (s *IngestService) rebuild(ctx context.Context, kind domain.RecordKind) (*domain.RebuildResult, error) {
	versions, err := s.store.ListVersions(ctx, kind, true)
	if err != nil {
		return nil, domain.AsPersistence("list versions", err)
	}

	// Dropped even when the replay fails part way.
	defer s.cache.Delete(budgetCacheKey)

	if err := s.deleteAllRecords(ctx, kind); err != nil {
		s.metrics.IncrStoreError(s.store.Name())
		return nil, domain.AsPersistence("clear "+string(kind), err)
	}
	s.logger.Info("emptied canonical collection", zap.String("kind", string(kind)))

	result := &domain.RebuildResult{Kind: kind, Versions: len(versions)}
	latest := 0
	for _, v := range versions {
		s.logger.Info("reprocessing version",
			zap.String("kind", string(kind)),
			zap.Int("version", v.VersionNumber),
		)
		batch := s.pipeline.Transform(kind, v.Rows, v.ID)
		s.assignIDs(&batch)
		if err := s.insert(ctx, kind, batch); err != nil {
			s.metrics.IncrStoreError(s.store.Name())
			return nil, domain.AsPersistence(fmt.Sprintf("rebuild %s version %d", kind, v.VersionNumber), err)
		}
		result.Inserted += batch.Len()
		result.Dropped += batch.Dropped
		latest = v.VersionNumber
	}

	s.metrics.IncrRebuild(kind)
	s.metrics.RecordRows(kind, result.Inserted, result.Dropped)
	s.metrics.SetLatestVersion(kind, latest)

	result.Message = fmt.Sprintf("Rebuilt %s from %d versions.", kind, len(versions))
	s.logger.Info("rebuilt canonical collection",
		zap.String("kind", string(kind)),
		zap.Int("versions", len(versions)),
		zap.Int("inserted", result.Inserted),
		zap.Int("dropped", result.Dropped),
	)
	return result, nil
}
