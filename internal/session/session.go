// Package session keeps signed-in shoppers and administrators in a cookie-keyed store.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
)

const (
	cookieName = "storefront_session"
	ttl        = 7 * 24 * time.Hour
)

// Data is what a session remembers. UserID stays zero until sign-in completes;
// OAuthState holds the pending login's anti-forgery state.
type Data struct {
	UserID     uuid.UUID   `json:"user_id"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Role       models.Role `json:"role"`
	OAuthState string      `json:"oauth_state,omitempty"`
	ReturnTo   string      `json:"return_to,omitempty"`
	CreatedAt  int64       `json:"created_at"`
}

func (d *Data) Authenticated() bool {
	return d != nil && d.UserID != uuid.Nil
}

func (d *Data) IsAdmin() bool {
	return d.Authenticated() && d.Role == models.RoleAdmin
}

type Manager struct {
	store  Store
	secure bool
	now    func() time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (*Data, bool)
	Set(ctx context.Context, key string, data *Data, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

func NewManager(store Store, secure bool) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
		now:    time.Now,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// CreateSession stores data under a fresh id and sets the cookie.
func (m *Manager) CreateSession(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	if data == nil {
		return "", fmt.Errorf("session data is required")
	}

	sessionID := uuid.NewString()
	sessionData := cloneData(data)
	sessionData.CreatedAt = m.now().Unix()
	m.store.Set(ctx, sessionID, sessionData, ttl)

	http.SetCookie(w, m.cookie(sessionID, int(ttl.Seconds())))
	return sessionID, nil
}

func (m *Manager) GetSession(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, fmt.Errorf("no session cookie found: %w", err)
	}

	data, ok := m.store.Get(ctx, cookie.Value)
	if !ok {
		return nil, fmt.Errorf("session not found or expired")
	}

	if m.now().Unix()-data.CreatedAt > int64(ttl.Seconds()) {
		m.store.Delete(ctx, cookie.Value)
		return nil, fmt.Errorf("session expired")
	}
	return data, nil
}

// DestroySession removes the session and clears the cookie.
func (m *Manager) DestroySession(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(cookieName); err == nil {
		m.store.Delete(ctx, cookie.Value)
	}
	http.SetCookie(w, m.cookie("", -1))
}

// Rotate replaces the session id after sign-in so a pre-login id cannot be reused.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) (string, error) {
	if cookie, err := r.Cookie(cookieName); err == nil {
		m.store.Delete(ctx, cookie.Value)
	}
	return m.CreateSession(ctx, w, data)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cloneData(data *Data) *Data {
	if data == nil {
		return nil
	}
	cloned := *data
	return &cloned
}
