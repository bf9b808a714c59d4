package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// kindParam reads the {kind} path segment.
func kindParam(r *http.Request) (domain.RecordKind, error) {
	return domain.ParseRecordKind(chi.URLParam(r, "kind"))
}

// indexParam reads the {index} path segment as a non-negative row index.
func indexParam(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		return 0, &domain.ErrValidation{Field: "index", Message: "Invalid record index."}
	}
	return idx, nil
}

// decodeRow reads a JSON object body. Numbers stay as json.Number so large
// account and cost center ids keep every digit.
func decodeRow(r *http.Request) (domain.Row, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var row domain.Row
	if err := dec.Decode(&row); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.ErrValidation{Field: "body", Message: "request body is required"}
		}
		return nil, &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	if row == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "request body must be an object"}
	}
	return row, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validationFailed *domain.ErrValidationFailed
	var uploadEmpty *domain.ErrUploadEmpty
	var noValidRows *domain.ErrNoValidRows
	var invalidSheet *domain.ErrInvalidSpreadsheet
	var validation *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var duplicate *domain.ErrDuplicate
	var circuitOpen *domain.ErrCircuitOpen
	var persistence *domain.ErrPersistence

	switch {
	case errors.As(err, &validationFailed):
		logger.Info("upload validation failed",
			zap.String("kind", string(validationFailed.Kind)),
			zap.Int("row_errors", len(validationFailed.Errors)),
		)
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: domain.ValidationFailedMessage,
			Errors:  validationFailed.Errors,
		})
	case errors.As(err, &uploadEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &noValidRows):
		logger.Debug("no valid rows", zap.String("kind", string(noValidRows.Kind)))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidSheet):
		logger.Debug("invalid spreadsheet", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		logger.Warn("duplicate resource", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &persistence):
		logger.Error("persistence failure", zap.String("op", persistence.Op), zap.Error(persistence.Err))
		writeError(w, http.StatusInternalServerError, "Server error while accessing data.")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
