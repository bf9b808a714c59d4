package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/supabase"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	return supabase.NewClient(srv.Client(), srv.URL, "anon", "service", resilience.NewCircuitBreaker("supabase", zap.NewNop()), cfg, zap.NewNop())
}

func TestListCostCenters_SendsKeysAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer service" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if !strings.HasPrefix(r.URL.Path, "/rest/v1/cost_centers") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"cost_center":14152001,"cost_center_name":"Brand"}]`))
	})

	centers, err := c.ListCostCenters(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(centers) != 1 || centers[0].CostCenter != 14152001 || centers[0].CostCenterName != "Brand" {
		t.Errorf("unexpected centers %+v", centers)
	}
}

func TestCreateVersion_ConflictIsDuplicate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505"}`))
	})

	err := c.CreateVersion(context.Background(), &domain.UploadVersion{
		ID: "v1", Kind: domain.KindActuals, VersionNumber: 1, UploadedAt: time.Now(),
	})
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected conflict not to be retried, got %d calls", calls.Load())
	}
}

func TestDeleteActual_EmptyRepresentationIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.Write([]byte(`[]`))
	})

	err := c.DeleteActual(context.Background(), "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertActuals_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var got []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	err := c.InsertActuals(context.Background(), []domain.ActualRecord{
		{ID: "a1", VersionID: "v1", CostCenter: 14152001, MainAccount: "6000", Amount: decimal.NewFromInt(10)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if len(got) != 1 || got[0]["version_id"] != "v1" || got[0]["main_account"] != "6000" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestListAnticipateds_DecodesMonths(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"x","version_id":null,"account_name":"Travel","main_account":6100,"cost_center":14152002,"months":{"Feb-25":20,"Jan-25":"10.5"}}]`))
	})

	recs, err := c.ListAnticipateds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	months := recs[0].Months
	if len(months) != 2 || months[0].Month.String() != "Jan-25" {
		t.Errorf("expected months sorted from Jan-25, got %+v", months)
	}
	if !months.Total().Equal(decimal.RequireFromString("30.5")) {
		t.Errorf("expected total 30.5, got %s", months.Total())
	}
	if recs[0].VersionID != "" {
		t.Errorf("expected empty version id, got %q", recs[0].VersionID)
	}
}

func TestUpdateVersionRow_BadIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"v1","kind":"actuals","version_number":1,"uploaded_at":"2025-01-02T00:00:00Z","file_name":"a.xlsx","data":[{"Amount":"1"}]}]`))
	})

	err := c.UpdateVersionRow(context.Background(), domain.KindActuals, "v1", 3, domain.Row{"Amount": "2"})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
