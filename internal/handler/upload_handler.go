package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

// multipartMemory is how much of a form ParseMultipartForm keeps in memory
// before spilling file parts to disk.
const multipartMemory = 8 << 20

// ============================================================
// Uploads: POST /v1/uploads/{kind}
// ============================================================

func uploadHandler(svc *service.IngestService, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/uploads/{kind}")
		defer span.End()

		kind, err := kindParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if r.ContentLength > maxBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large.")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		fileName, data, err := readUpload(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large.")
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("file.name", fileName), attribute.Int("file.bytes", len(data)))

		result, err := svc.Upload(ctx, kind, fileName, data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// readUpload returns the name and bytes of the "file" form part. A request
// without that part yields *domain.ErrUploadEmpty.
func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, &domain.ErrUploadEmpty{}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, &domain.ErrUploadEmpty{}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// ============================================================
// Version history: /v1/uploads/{kind}/versions
// ============================================================

func listVersionsHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/uploads/{kind}/versions")
		defer span.End()

		kind, err := kindParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		versions, err := svc.ListVersions(ctx, kind)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, versions)
	}
}

func getVersionHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/uploads/{kind}/versions/{id}")
		defer span.End()

		kind, err := kindParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		version, err := svc.GetVersion(ctx, kind, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, version)
	}
}

type recordUpdatedResponse struct {
	Message string     `json:"message"`
	Record  domain.Row `json:"record"`
}

func updateVersionRecordHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/uploads/{kind}/versions/{id}/records/{index}")
		defer span.End()

		kind, err := kindParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		index, err := indexParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		row, err := decodeRow(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		updated, err := svc.UpdateRecordInVersion(ctx, kind, chi.URLParam(r, "id"), index, row)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, recordUpdatedResponse{Message: "Record updated successfully.", Record: updated})
	}
}

func deleteVersionHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/uploads/{kind}/versions/{id}")
		defer span.End()

		kind, err := kindParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.DeleteVersion(ctx, kind, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func rebuildHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/uploads/{kind}/rebuild")
		defer span.End()

		kind, err := kindParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.Rebuild(ctx, kind)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
