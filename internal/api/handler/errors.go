package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/internal/export"
	"github.com/kiranshivaraju/pixelflow/internal/review"
	"github.com/kiranshivaraju/pixelflow/internal/simulator"
	"github.com/kiranshivaraju/pixelflow/internal/store"
	"github.com/kiranshivaraju/pixelflow/internal/upload"
)

// writeError maps service errors onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var bodyErr *errInvalidBody
	switch {
	case errors.As(err, &bodyErr):
		var details any
		if len(bodyErr.details) > 0 {
			details = bodyErr.details
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", bodyErr.message, details)

	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job or item not found", nil)

	case errors.Is(err, review.ErrNoFiles):
		response.Error(w, http.StatusBadRequest, "NO_FILES", "At least one file is required", nil)
	case errors.Is(err, review.ErrUnknownPreset):
		response.Error(w, http.StatusBadRequest, "UNKNOWN_PRESET", err.Error(), nil)
	case errors.Is(err, review.ErrInvalidDecision):
		response.Error(w, http.StatusBadRequest, "INVALID_DECISION", err.Error(), nil)
	case errors.Is(err, review.ErrInvalidReason):
		response.Error(w, http.StatusBadRequest, "INVALID_REASON", err.Error(), nil)
	case errors.Is(err, review.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, store.ErrStatusConflict):
		response.Error(w, http.StatusConflict, "STATUS_CONFLICT",
			"The item changed while the request was being handled", nil)

	case errors.Is(err, upload.ErrUnsupportedType):
		response.Error(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", err.Error(), nil)
	case errors.Is(err, upload.ErrFileTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, upload.ErrTooManyFiles), errors.Is(err, upload.ErrEmptyName):
		response.Error(w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error(), nil)

	case errors.Is(err, export.ErrAlreadyPreparing):
		response.Error(w, http.StatusConflict, "EXPORT_PREPARING", "Export is already being prepared", nil)
	case errors.Is(err, export.ErrNotReady):
		response.Error(w, http.StatusConflict, "EXPORT_NOT_READY", "Export is not ready for download", nil)

	case errors.Is(err, simulator.ErrSchedulerStopped):
		response.Error(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Server is shutting down", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusServiceUnavailable, "REQUEST_CANCELLED", "Request was cancelled", nil)

	default:
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
