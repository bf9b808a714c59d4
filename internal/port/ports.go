// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// Cache provides generic caching with TTL. Delete advances the write
// generation; SetIfUnchanged stores only when gen is still current.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Generation() uint64
	SetIfUnchanged(key string, value T, gen uint64) bool
	Delete(key string)
}

// ReferenceStore holds the static cost center and account tables.
type ReferenceStore interface {
	ListCostCenters(ctx context.Context) ([]domain.CostCenter, error)
	ListAccountSpendTypes(ctx context.Context) ([]domain.AccountSpendType, error)
	UpsertCostCenters(ctx context.Context, centers []domain.CostCenter) error
	UpsertAccountSpendTypes(ctx context.Context, accounts []domain.AccountSpendType) error
}

// ActualStore persists canonical actual records.
type ActualStore interface {
	ListActuals(ctx context.Context) ([]domain.ActualRecord, error)
	GetActual(ctx context.Context, id string) (*domain.ActualRecord, error)
	CreateActual(ctx context.Context, rec *domain.ActualRecord) error
	UpdateActual(ctx context.Context, rec *domain.ActualRecord) error
	DeleteActual(ctx context.Context, id string) error
	InsertActuals(ctx context.Context, recs []domain.ActualRecord) error
	DeleteActualsByVersion(ctx context.Context, versionID string) error
	DeleteAllActuals(ctx context.Context) error
}

// AnticipatedStore persists canonical anticipated records.
type AnticipatedStore interface {
	ListAnticipateds(ctx context.Context) ([]domain.AnticipatedRecord, error)
	InsertAnticipateds(ctx context.Context, recs []domain.AnticipatedRecord) error
	DeleteAnticipatedsByVersion(ctx context.Context, versionID string) error
	DeleteAllAnticipateds(ctx context.Context) error
}

// VersionStore persists upload version snapshots. CreateVersion must return
// *domain.ErrDuplicate when the (kind, versionNumber) pair is taken.
type VersionStore interface {
	LatestVersionNumber(ctx context.Context, kind domain.RecordKind) (int, error)
	CreateVersion(ctx context.Context, v *domain.UploadVersion) error
	// ListVersions returns versions in ascending version order.
	ListVersions(ctx context.Context, kind domain.RecordKind, withRows bool) ([]domain.UploadVersion, error)
	GetVersion(ctx context.Context, kind domain.RecordKind, id string) (*domain.UploadVersion, error)
	UpdateVersionRow(ctx context.Context, kind domain.RecordKind, id string, index int, row domain.Row) error
	DeleteVersion(ctx context.Context, kind domain.RecordKind, id string) error
}

// Store is the full persistence surface used by the services.
type Store interface {
	ReferenceStore
	ActualStore
	AnticipatedStore
	VersionStore
	Ping(ctx context.Context) error
	Name() string
}

// EventPublisher announces changes to canonical data.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.UploadEvent) error
}

// FileArchiver keeps the raw uploaded bytes. It returns a location URI.
type FileArchiver interface {
	Archive(ctx context.Context, kind domain.RecordKind, versionID, fileName string, data []byte) (string, error)
}
