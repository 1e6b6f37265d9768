package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

// NewGetItemHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/items/{itemID}, the full-size preview.
func NewGetItemHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.GetItem(r.Context(), chi.URLParam(r, "jobID"), chi.URLParam(r, "itemID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, item)
	}
}

// NewDecisionHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/items/{itemID}/decision.
func NewDecisionHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status models.ItemStatus `json:"status"`
		}
		if err := decodeJSON(r, decisionSchema, &req); err != nil {
			writeError(w, r, err)
			return
		}

		item, err := svc.Decide(r.Context(), chi.URLParam(r, "jobID"), chi.URLParam(r, "itemID"), req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, item)
	}
}

// NewRerunHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/items/{itemID}/rerun.
func NewRerunHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.Rerun(r.Context(), chi.URLParam(r, "jobID"), chi.URLParam(r, "itemID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, item)
	}
}

// NewFeedbackHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/items/{itemID}/feedback.
func NewFeedbackHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason models.FeedbackReason `json:"reason"`
			Notes  string                `json:"notes"`
		}
		if err := decodeJSON(r, feedbackSchema, &req); err != nil {
			writeError(w, r, err)
			return
		}

		item, err := svc.SubmitFeedback(r.Context(), chi.URLParam(r, "jobID"), chi.URLParam(r, "itemID"), req.Reason, req.Notes)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, item)
	}
}
