package handler

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/kiranshivaraju/pixelflow/internal/api/middleware"
	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/internal/session"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
// Any well-formed submission is accepted.
func NewLoginHandler(svc Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds session.Credentials
		if err := decodeJSON(r, loginSchema, &creds); err != nil {
			writeError(w, r, err)
			return
		}

		sess, err := svc.Login(r.Context(), creds)
		if err != nil {
			writeError(w, r, err)
			return
		}
		slog.Info("login", "session_id", sess.ID, "email", creds.Email)

		response.JSON(w, loginResponse{
			Token:     sess.Token,
			ExpiresAt: sess.ExpiresAt,
			User:      sess.User,
		})
	}
}

// NewLogoutHandler returns an http.HandlerFunc for POST /api/v1/auth/logout.
func NewLogoutHandler(svc Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := mw.GetSession(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing session", nil)
			return
		}
		if err := svc.Logout(r.Context(), sess.ID); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

// NewMeHandler returns an http.HandlerFunc for GET /api/v1/me.
func NewMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := mw.GetSession(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing session", nil)
			return
		}
		response.JSON(w, sess.User)
	}
}
