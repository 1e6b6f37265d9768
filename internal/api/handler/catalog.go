package handler

import (
	"net/http"

	mw "github.com/kiranshivaraju/pixelflow/internal/api/middleware"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/internal/catalog"
)

// NewPresetsHandler returns an http.HandlerFunc for GET /api/v1/presets.
func NewPresetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, catalog.Presets())
	}
}

// NewDashboardHandler returns an http.HandlerFunc for GET /api/v1/dashboard.
func NewDashboardHandler(svc Jobs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := mw.GetSession(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing session", nil)
			return
		}
		d, err := svc.Dashboard(r.Context(), sess.User)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, d)
	}
}
