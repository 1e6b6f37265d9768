package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/pixelflow/internal/api/response"
	"github.com/kiranshivaraju/pixelflow/internal/session"
)

// SessionResolver resolves a bearer token to a live session.
type SessionResolver interface {
	Current(ctx context.Context, token string) (*session.Session, error)
}

// Auth gates protected routes on a live session.
type Auth struct {
	sessions SessionResolver
}

// NewAuth creates a new Auth middleware.
func NewAuth(s SessionResolver) *Auth {
	return &Auth{sessions: s}
}

// Authenticate validates the Bearer token and sets the session in the
// request context. Requests without a live session get 401.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"UNAUTHENTICATED", "Missing or invalid Authorization header", nil)
			return
		}

		sess, err := a.sessions.Current(r.Context(), token)
		if errors.Is(err, session.ErrInvalidSession) {
			response.Error(w, http.StatusUnauthorized,
				"UNAUTHENTICATED", "Session is invalid or has ended", nil)
			return
		}
		if err != nil {
			slog.Error("resolving session", "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate session", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetSession(r.Context(), sess)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
