package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/handler"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/archive"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/cache"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/events"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/memory"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
	"github.com/yolokazi-cloud/MarketingApp1/internal/ingest"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

func newTestRouter(t *testing.T, maxUploadBytes int64) http.Handler {
	t.Helper()
	store := memory.NewStore()
	if err := service.SeedReference(context.Background(), store, zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := cache.New[domain.BudgetReport](time.Minute)
	t.Cleanup(c.Close)
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	svc := handler.Services{
		Budget: service.NewBudgetService(store, c, metrics, logger),
		Ingest: service.NewIngestService(store, ingest.NewPipeline(logger), events.Noop{}, archive.Noop{}, c,
			resilience.NewBulkhead(2), metrics, logger),
		Actuals: service.NewActualsService(store, c, events.Noop{}, logger),
	}
	return handler.NewRouter(svc, metrics, maxUploadBytes, logger)
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "upload.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

var actualsSheet = [][]any{
	{"Category", "Cost Center", "Date", "Account entry description", "Main Account", "Main Account Name", "Amount", "Party Name", "Document Description"},
	{"Consulting", 14152001, "2025-03-15", "Q1 consulting", "730007", "Exp Consultancy Other", "9500.00", "Consulting Firm A", "INV-001"},
	{"Salaries", 14152006, "2025-03-25", "March Salaries", "710010", "Exp Salaries Permanent", "49,850.50", "Payroll", "MAR-PAY"},
}

func TestOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, 0)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping", "/v1/metrics/ingestion"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestUploadFlow(t *testing.T) {
	router := newTestRouter(t, 0)

	rec := serve(router, multipartRequest(t, "/v1/uploads/actuals", "file", workbook(t, actualsSheet)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[domain.UploadResult](t, rec)
	if result.Message != "Successfully uploaded and processed 2 records. Saved as version 1." {
		t.Errorf("unexpected message %q", result.Message)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/v1/uploads/actuals/versions", nil))
	versions := decode[[]domain.UploadVersion](t, rec)
	if len(versions) != 1 || versions[0].VersionNumber != 1 || versions[0].ID != result.VersionID {
		t.Fatalf("unexpected versions %+v", versions)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/v1/uploads/actuals/versions/"+result.VersionID, nil))
	version := decode[domain.UploadVersion](t, rec)
	if len(version.Rows) != 2 {
		t.Errorf("expected 2 snapshot rows, got %d", len(version.Rows))
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/v1/budget", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("budget: expected 200, got %d", rec.Code)
	}
	var report map[string]struct {
		TeamName     string `json:"teamName"`
		ActualPeople []struct {
			Name string `json:"name"`
		} `json:"actualPeople"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode budget: %v", err)
	}
	shared := report["14152006"]
	if shared.TeamName != "Shared Services" || len(shared.ActualPeople) != 1 {
		t.Errorf("unexpected Shared Services entry %+v", shared)
	}

	update := httptest.NewRequest(http.MethodPut, "/v1/uploads/actuals/versions/"+result.VersionID+"/records/0",
		strings.NewReader(`{"Cost Center": 14152001, "Amount": 100}`))
	rec = serve(router, update)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Record updated successfully.") {
		t.Errorf("update record: got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/v1/uploads/actuals/versions/"+result.VersionID, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Version deleted and data rebuilt successfully.") {
		t.Errorf("delete version: got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/v1/actuals", nil))
	if actuals := decode[[]domain.ActualRecord](t, rec); len(actuals) != 0 {
		t.Errorf("expected no actuals after deleting the only version, got %d", len(actuals))
	}
}

func TestUpload_ValidationErrors(t *testing.T) {
	router := newTestRouter(t, 0)

	data := workbook(t, [][]any{
		{"Account name", "MainAccount", "CostCenter", "Mar-25"},
		{"Exp Consultancy Other", 730007, "", ""},
	})
	rec := serve(router, multipartRequest(t, "/v1/uploads/anticipateds", "file", data))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decode[struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}](t, rec)
	if body.Message != domain.ValidationFailedMessage {
		t.Errorf("unexpected message %q", body.Message)
	}
	if len(body.Errors) != 1 || !strings.HasPrefix(body.Errors[0], "Row 2: ") {
		t.Errorf("unexpected errors %v", body.Errors)
	}
}

func TestUpload_BadRequests(t *testing.T) {
	router := newTestRouter(t, 0)

	tests := []struct {
		name    string
		req     *http.Request
		code    int
		message string
	}{
		{
			name:    "missing file",
			req:     multipartRequest(t, "/v1/uploads/actuals", "other", []byte("x")),
			code:    http.StatusBadRequest,
			message: "No file uploaded.",
		},
		{
			name:    "unknown kind",
			req:     multipartRequest(t, "/v1/uploads/forecasts", "file", []byte("x")),
			code:    http.StatusBadRequest,
			message: `unknown record kind "forecasts", expected actuals or anticipateds`,
		},
		{
			name: "invalid record index",
			req: httptest.NewRequest(http.MethodPut, "/v1/uploads/actuals/versions/v1/records/-1",
				strings.NewReader(`{}`)),
			code:    http.StatusBadRequest,
			message: "Invalid record index.",
		},
		{
			name:    "unknown version",
			req:     httptest.NewRequest(http.MethodDelete, "/v1/uploads/actuals/versions/missing", nil),
			code:    http.StatusNotFound,
			message: "version not found: missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.req)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			body := decode[map[string]any](t, rec)
			if body["message"] != tt.message {
				t.Errorf("expected message %q, got %v", tt.message, body["message"])
			}
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	router := newTestRouter(t, 1024)

	rec := serve(router, multipartRequest(t, "/v1/uploads/actuals", "file", bytes.Repeat([]byte("x"), 4096)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestActualsCRUD(t *testing.T) {
	router := newTestRouter(t, 0)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/v1/actuals",
		strings.NewReader(`{"Cost Center": 14152003, "Main Account": "722011", "Amount": "1,250.00", "Date": "2025-04-02"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		Message string              `json:"message"`
		Record  domain.ActualRecord `json:"record"`
	}](t, rec)
	if created.Record.ID == "" || created.Record.CostCenter != 14152003 {
		t.Fatalf("unexpected record %+v", created.Record)
	}

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/v1/actuals", strings.NewReader(`{"Amount": 5}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing cost center, got %d", rec.Code)
	}

	rec = serve(router, httptest.NewRequest(http.MethodPut, "/v1/actuals/missing",
		strings.NewReader(`{"Cost Center": 14152003, "Amount": 5}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = serve(router, httptest.NewRequest(http.MethodPut, "/v1/actuals/"+created.Record.ID, strings.NewReader(`not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid body, got %d", rec.Code)
	}

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/v1/actuals/"+created.Record.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
