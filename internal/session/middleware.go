package session

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const ctxKey contextKey = "session"

// Middleware attaches the caller's session, when there is one, to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if data, err := m.GetSession(r.Context(), r); err == nil {
			r = r.WithContext(WithData(r.Context(), data))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a signed-in user with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 for anonymous callers and 403 for non-admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := FromContext(r.Context())
		switch {
		case !data.Authenticated():
			deny(w, http.StatusUnauthorized, "Unauthorized")
		case !data.IsAdmin():
			deny(w, http.StatusForbidden, "Forbidden")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func WithData(ctx context.Context, data *Data) context.Context {
	return context.WithValue(ctx, ctxKey, data)
}

func FromContext(ctx context.Context) *Data {
	if ctx == nil {
		return nil
	}
	data, _ := ctx.Value(ctxKey).(*Data)
	return data
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
