// Package session holds the logged-in identity behind each bearer token.
//
// Login performs no credential validation: any submitted form yields the demo
// identity. A token is a signed JWT whose ID names a slot in the cache; Logout
// clears the slot, so a token is only valid while both the signature checks
// out and the slot exists.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/pixelflow/internal/cache"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// Credentials is the submitted login form. It is recorded for logging only.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an established login.
type Session struct {
	ID        string      `json:"id"`
	Token     string      `json:"token,omitempty"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Holder issues, resolves and clears sessions.
type Holder struct {
	cache    cache.Cache
	secret   []byte
	ttl      time.Duration
	identity func() models.User
	now      func() time.Time
}

// NewHolder creates a Holder. identity supplies the user every login resolves to.
func NewHolder(c cache.Cache, secret string, ttl time.Duration, identity func() models.User) *Holder {
	return &Holder{
		cache:    c,
		secret:   []byte(secret),
		ttl:      ttl,
		identity: identity,
		now:      time.Now,
	}
}

// Login establishes a session for the fixed identity. Credentials are not checked.
func (h *Holder) Login(ctx context.Context, _ Credentials) (*Session, error) {
	user := h.identity()
	now := h.now()
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		ExpiresAt: now.Add(h.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	sess.Token = signed

	slot, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := h.cache.Set(ctx, cache.SessionKey(sess.ID), slot, h.ttl); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// Current resolves a bearer token to its session.
func (h *Holder) Current(ctx context.Context, token string) (*Session, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(h.now))
	if err != nil || !parsed.Valid || c.ID == "" {
		return nil, ErrInvalidSession
	}

	slot, found, err := h.cache.Get(ctx, cache.SessionKey(c.ID))
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !found {
		return nil, ErrInvalidSession
	}

	var user models.User
	if err := json.Unmarshal(slot, &user); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	sess := &Session{ID: c.ID, User: user}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess, nil
}

// Logout clears the session slot. Clearing an absent slot is not an error.
func (h *Holder) Logout(ctx context.Context, sessionID string) error {
	if err := h.cache.Delete(ctx, cache.SessionKey(sessionID)); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
