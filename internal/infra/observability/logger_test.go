package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_RouteAndKind(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(RequestLogger(zap.New(core), time.Minute))
	r.Post("/v1/uploads/{kind}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Get("/v1/budget", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/uploads/actuals", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/budget", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}

	upload := entries[0]
	if upload.Level != zapcore.WarnLevel {
		t.Errorf("expected Warn for a 400, got %s", upload.Level)
	}
	fields := upload.ContextMap()
	if fields["kind"] != "actuals" || fields["route"] != "/v1/uploads/{kind}" {
		t.Errorf("unexpected fields %v", fields)
	}

	budget := entries[1]
	if budget.Level != zapcore.InfoLevel {
		t.Errorf("expected Info for a 200, got %s", budget.Level)
	}
	if _, ok := budget.ContextMap()["kind"]; ok {
		t.Error("expected no kind on routes without one")
	}
}

func TestRequestLogger_SlowRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(RequestLogger(zap.New(core), time.Millisecond))
	r.Get("/v1/budget", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/budget", nil))

	entries := logs.FilterMessage("slow http request").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one slow request warning, got %+v", logs.All())
	}
}
