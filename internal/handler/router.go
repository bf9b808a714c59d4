package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

var tracer = otel.Tracer("handler")

// DefaultMaxUploadBytes caps an upload request when no limit is configured.
const DefaultMaxUploadBytes = 20 << 20

// Large workbooks take a while to decode; anything slower is logged at Warn.
const slowRequestThreshold = 10 * time.Second

// Services bundles the use cases the router exposes.
type Services struct {
	Budget  *service.BudgetService
	Ingest  *service.IngestService
	Actuals *service.ActualsService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, maxUploadBytes int64, logger *zap.Logger) http.Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger, slowRequestThreshold))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Budget))
	r.Get("/readyz", readyzHandler(svc.Budget))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/ingestion", ingestionMetricsHandler(metrics))

		if svc.Budget != nil {
			r.Get("/budget", budgetHandler(svc.Budget, logger))
			r.Get("/cost-centers", listCostCentersHandler(svc.Budget, logger))
			r.Get("/accounts", listAccountsHandler(svc.Budget, logger))
		}

		if svc.Actuals != nil {
			r.Route("/actuals", func(r chi.Router) {
				r.Get("/", listActualsHandler(svc.Actuals, logger))
				r.Post("/", createActualHandler(svc.Actuals, logger))
				r.Put("/{id}", updateActualHandler(svc.Actuals, logger))
				r.Delete("/{id}", deleteActualHandler(svc.Actuals, logger))
			})
		}

		if svc.Ingest != nil {
			r.Route("/uploads/{kind}", func(r chi.Router) {
				r.Post("/", uploadHandler(svc.Ingest, maxUploadBytes, logger))
				r.Post("/rebuild", rebuildHandler(svc.Ingest, logger))
				r.Get("/versions", listVersionsHandler(svc.Ingest, logger))
				r.Get("/versions/{id}", getVersionHandler(svc.Ingest, logger))
				r.Delete("/versions/{id}", deleteVersionHandler(svc.Ingest, logger))
				r.Put("/versions/{id}/records/{index}", updateVersionRecordHandler(svc.Ingest, logger))
			})
		}
	})

	return r
}
