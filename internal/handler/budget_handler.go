package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

// ============================================================
// Dashboard: GET /v1/budget
// ============================================================

func budgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budget")
		defer span.End()

		report, err := svc.GetBudget(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// Reference data
// ============================================================

func listCostCentersHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cost-centers")
		defer span.End()

		centers, err := svc.ListCostCenters(ctx)
		if err != nil {
			handleServiceError(w, domain.AsPersistence("list cost centers", err), logger)
			return
		}
		writeJSON(w, http.StatusOK, centers)
	}
}

func listAccountsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.ListAccounts(ctx)
		if err != nil {
			handleServiceError(w, domain.AsPersistence("list accounts", err), logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(svc *service.BudgetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []domain.ServiceHealth{
			{Name: "budget-api", Status: "healthy", LastChecked: time.Now().UTC().Format(time.RFC3339)},
		}
		if svc != nil {
			services = append(services, svc.Health(r.Context()))
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler(svc *service.BudgetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc != nil {
			if h := svc.Health(r.Context()); h.Status != "healthy" {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "store": h.Name})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ingestionMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetIngestionSnapshot())
	}
}
