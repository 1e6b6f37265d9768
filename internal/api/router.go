package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/pixelflow/internal/api/middleware"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	LoginHandler  http.HandlerFunc
	LogoutHandler http.HandlerFunc
	MeHandler     http.HandlerFunc

	PresetsHandler   http.HandlerFunc
	DashboardHandler http.HandlerFunc

	ListJobsHandler  http.HandlerFunc
	CreateJobHandler http.HandlerFunc
	GetJobHandler    http.HandlerFunc

	GetItemHandler  http.HandlerFunc
	DecisionHandler http.HandlerFunc
	RerunHandler    http.HandlerFunc
	FeedbackHandler http.HandlerFunc

	ExportStateHandler    http.HandlerFunc
	RequestExportHandler  http.HandlerFunc
	DownloadExportHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/auth/logout", orNotImplemented(deps.LogoutHandler))
		r.Get("/api/v1/me", orNotImplemented(deps.MeHandler))

		r.Get("/api/v1/presets", orNotImplemented(deps.PresetsHandler))
		r.Get("/api/v1/dashboard", orNotImplemented(deps.DashboardHandler))

		r.Route("/api/v1/jobs", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListJobsHandler))
			r.Post("/", orNotImplemented(deps.CreateJobHandler))

			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", orNotImplemented(deps.GetJobHandler))

				r.Get("/items/{itemID}", orNotImplemented(deps.GetItemHandler))
				r.Post("/items/{itemID}/decision", orNotImplemented(deps.DecisionHandler))
				r.Post("/items/{itemID}/rerun", orNotImplemented(deps.RerunHandler))
				r.Post("/items/{itemID}/feedback", orNotImplemented(deps.FeedbackHandler))

				r.Get("/export", orNotImplemented(deps.ExportStateHandler))
				r.Post("/export", orNotImplemented(deps.RequestExportHandler))
				r.Get("/export/download", orNotImplemented(deps.DownloadExportHandler))
			})
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
