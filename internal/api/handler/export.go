package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

type exportStateResponse struct {
	JobID string             `json:"job_id"`
	State models.ExportState `json:"state"`
}

// NewExportStateHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}/export.
func NewExportStateHandler(svc Exports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		state, err := svc.State(r.Context(), jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, exportStateResponse{JobID: jobID, State: state})
	}
}

// NewRequestExportHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/export.
func NewRequestExportHandler(svc Exports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		state, err := svc.Request(r.Context(), jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if state == models.ExportReady {
			response.JSON(w, exportStateResponse{JobID: jobID, State: state})
			return
		}
		response.Accepted(w, exportStateResponse{JobID: jobID, State: state})
	}
}

// NewDownloadExportHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/export/download.
func NewDownloadExportHandler(svc Exports) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundle, err := svc.Download(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Attachment(w, bundle.Filename, "application/zip", bundle.Data)
	}
}
