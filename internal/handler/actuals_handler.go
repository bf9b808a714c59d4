package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

// ============================================================
// Actual records: /v1/actuals
// ============================================================

type actualResponse struct {
	Message string               `json:"message"`
	Record  *domain.ActualRecord `json:"record"`
}

func listActualsHandler(svc *service.ActualsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/actuals")
		defer span.End()

		recs, err := svc.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func createActualHandler(svc *service.ActualsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/actuals")
		defer span.End()

		row, err := decodeRow(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, err := svc.Create(ctx, row)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, actualResponse{Message: "Actual record added successfully", Record: rec})
	}
}

func updateActualHandler(svc *service.ActualsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/actuals/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("actual.id", id))

		row, err := decodeRow(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, err := svc.Update(ctx, id, row)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, actualResponse{Message: "Actual record updated successfully", Record: rec})
	}
}

func deleteActualHandler(svc *service.ActualsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/actuals/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("actual.id", id))

		if err := svc.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Actual record deleted successfully"})
	}
}
