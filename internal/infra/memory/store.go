// Package memory is an in-memory implementation of port.Store.
// It is safe for concurrent use; data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// Store keeps every collection in process memory.
type Store struct {
	mu           sync.RWMutex
	costCenters  map[int64]domain.CostCenter
	accounts     map[int64]domain.AccountSpendType
	actuals      []domain.ActualRecord
	anticipateds []domain.AnticipatedRecord
	versions     map[domain.RecordKind][]domain.UploadVersion
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		costCenters: make(map[int64]domain.CostCenter),
		accounts:    make(map[int64]domain.AccountSpendType),
		versions:    make(map[domain.RecordKind][]domain.UploadVersion),
	}
}

func (s *Store) Name() string { return "memory" }

func (s *Store) Ping(context.Context) error { return nil }

// --- Reference data ---

func (s *Store) ListCostCenters(context.Context) ([]domain.CostCenter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CostCenter, 0, len(s.costCenters))
	for _, cc := range s.costCenters {
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CostCenter < out[j].CostCenter })
	return out, nil
}

func (s *Store) ListAccountSpendTypes(context.Context) ([]domain.AccountSpendType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AccountSpendType, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MainAccount < out[j].MainAccount })
	return out, nil
}

func (s *Store) UpsertCostCenters(_ context.Context, centers []domain.CostCenter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cc := range centers {
		s.costCenters[cc.CostCenter] = cc
	}
	return nil
}

func (s *Store) UpsertAccountSpendTypes(_ context.Context, accounts []domain.AccountSpendType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts[a.MainAccount] = a
	}
	return nil
}

// --- Actuals ---

func (s *Store) ListActuals(context.Context) ([]domain.ActualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]domain.ActualRecord, 0, len(s.actuals)), s.actuals...), nil
}

func (s *Store) GetActual(_ context.Context, id string) (*domain.ActualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.actuals {
		if a.ID == id {
			rec := a
			return &rec, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "actual record", ID: id}
}

func (s *Store) CreateActual(_ context.Context, rec *domain.ActualRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("actual record ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuals = append(s.actuals, *rec)
	return nil
}

func (s *Store) UpdateActual(_ context.Context, rec *domain.ActualRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.actuals {
		if s.actuals[i].ID == rec.ID {
			s.actuals[i] = *rec
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "actual record", ID: rec.ID}
}

func (s *Store) DeleteActual(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.actuals {
		if s.actuals[i].ID == id {
			s.actuals = append(s.actuals[:i], s.actuals[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "actual record", ID: id}
}

func (s *Store) InsertActuals(_ context.Context, recs []domain.ActualRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuals = append(s.actuals, recs...)
	return nil
}

func (s *Store) DeleteActualsByVersion(_ context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.actuals[:0]
	for _, a := range s.actuals {
		if a.VersionID != versionID {
			kept = append(kept, a)
		}
	}
	s.actuals = kept
	return nil
}

func (s *Store) DeleteAllActuals(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuals = nil
	return nil
}

// --- Anticipateds ---

func (s *Store) ListAnticipateds(context.Context) ([]domain.AnticipatedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnticipatedRecord, len(s.anticipateds))
	for i, a := range s.anticipateds {
		a.Months = append(domain.MonthAmounts(nil), a.Months...)
		out[i] = a
	}
	return out, nil
}

func (s *Store) InsertAnticipateds(_ context.Context, recs []domain.AnticipatedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anticipateds = append(s.anticipateds, recs...)
	return nil
}

func (s *Store) DeleteAnticipatedsByVersion(_ context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.anticipateds[:0]
	for _, a := range s.anticipateds {
		if a.VersionID != versionID {
			kept = append(kept, a)
		}
	}
	s.anticipateds = kept
	return nil
}

func (s *Store) DeleteAllAnticipateds(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anticipateds = nil
	return nil
}

// --- Versions ---

func (s *Store) LatestVersionNumber(_ context.Context, kind domain.RecordKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := 0
	for _, v := range s.versions[kind] {
		latest = max(latest, v.VersionNumber)
	}
	return latest, nil
}

func (s *Store) CreateVersion(_ context.Context, v *domain.UploadVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.versions[v.Kind] {
		if existing.VersionNumber == v.VersionNumber {
			return &domain.ErrDuplicate{Key: fmt.Sprintf("%s version %d", v.Kind, v.VersionNumber)}
		}
	}
	s.versions[v.Kind] = append(s.versions[v.Kind], copyVersion(*v, true))
	return nil
}

func (s *Store) ListVersions(_ context.Context, kind domain.RecordKind, withRows bool) ([]domain.UploadVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UploadVersion, 0, len(s.versions[kind]))
	for _, v := range s.versions[kind] {
		out = append(out, copyVersion(v, withRows))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (s *Store) GetVersion(_ context.Context, kind domain.RecordKind, id string) (*domain.UploadVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions[kind] {
		if v.ID == id {
			cp := copyVersion(v, true)
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "version", ID: id}
}

func (s *Store) UpdateVersionRow(_ context.Context, kind domain.RecordKind, id string, index int, row domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.versions[kind] {
		if v.ID != id {
			continue
		}
		if index < 0 || index >= len(v.Rows) {
			return &domain.ErrValidation{Field: "index", Message: "Invalid record index."}
		}
		s.versions[kind][i].Rows[index] = row.Clone()
		return nil
	}
	return &domain.ErrNotFound{Resource: "version", ID: id}
}

func (s *Store) DeleteVersion(_ context.Context, kind domain.RecordKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.versions[kind]
	for i, v := range versions {
		if v.ID == id {
			s.versions[kind] = append(versions[:i], versions[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "version", ID: id}
}

func copyVersion(v domain.UploadVersion, withRows bool) domain.UploadVersion {
	if !withRows {
		return v.Summary()
	}
	rows := make([]domain.Row, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = r.Clone()
	}
	v.Rows = rows
	return v
}
