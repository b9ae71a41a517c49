package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
)

func TestSafeReturnTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  string
	}{
		{value: "", want: "/"},
		{value: "/products/eames-lounge", want: "/products/eames-lounge"},
		{value: " /orders?tab=open ", want: "/orders?tab=open"},
		{value: "https://evil.example.com", want: "/"},
		{value: "//evil.example.com", want: "/"},
		{value: `/\evil.example.com`, want: "/"},
		{value: "orders", want: "/"},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Parallel()
			if got := safeReturnTo(tc.value); got != tc.want {
				t.Fatalf("unexpected return path: got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestGoogleLogin_StoresStateAndRedirects(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	deps.Auth = &fakeAuth{state: "state-123"}
	h := newTestHandlers(t, deps)

	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login?returnTo=/wishlist", nil))

	resp := rec.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("unexpected status: got=%d want=%d", resp.StatusCode, http.StatusSeeOther)
	}
	if location := resp.Header.Get("Location"); !strings.HasPrefix(location, "https://accounts.google.com/") || !strings.Contains(location, "state-123") {
		t.Fatalf("unexpected redirect location: got=%q", location)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	pending, err := h.sessionManager.GetSession(req.Context(), req)
	if err != nil {
		t.Fatalf("expected pre-login session: %v", err)
	}
	if pending.OAuthState != "state-123" || pending.ReturnTo != "/wishlist" || pending.Authenticated() {
		t.Fatalf("unexpected pre-login session: %+v", pending)
	}
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, testDeps())
	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestGoogleCallback_WithoutPendingLoginRestarts(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	auth := &fakeAuth{state: "state-123"}
	deps.Auth = auth
	h := newTestHandlers(t, deps)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=state-123", nil))

	resp := rec.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("unexpected status: got=%d want=%d", resp.StatusCode, http.StatusSeeOther)
	}
	if location := resp.Header.Get("Location"); location != "/auth/google/login" {
		t.Fatalf("unexpected redirect location: got=%q", location)
	}
	if len(auth.codes) != 0 {
		t.Fatal("code must not be exchanged without a pending login")
	}
}

func TestGoogleCallback(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "minji@example.com", Name: "김민지", Role: models.RoleCustomer}

	tests := []struct {
		name         string
		query        string
		authErr      error
		wantStatus   int
		wantLocation string
		wantSignedIn bool
	}{
		{name: "success", query: "code=abc&state=state-123", wantStatus: http.StatusSeeOther, wantLocation: "/wishlist", wantSignedIn: true},
		{name: "state mismatch", query: "code=abc&state=forged", wantStatus: http.StatusBadRequest},
		{name: "consent denied", query: "error=access_denied&state=state-123", wantStatus: http.StatusUnauthorized},
		{name: "missing code", query: "state=state-123", authErr: services.ErrAuthInvalidCode, wantStatus: http.StatusBadRequest},
		{name: "unverified email", query: "code=abc&state=state-123", authErr: services.ErrAuthUnverified, wantStatus: http.StatusForbidden},
		{name: "exchange failed", query: "code=abc&state=state-123", authErr: fmt.Errorf("%w: timeout", services.ErrAuthCodeExchange), wantStatus: http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			deps := testDeps()
			auth := &fakeAuth{state: "state-123", user: user, err: tc.authErr}
			deps.Auth = auth
			h := newTestHandlers(t, deps)

			loginRec := httptest.NewRecorder()
			h.GoogleLogin(loginRec, httptest.NewRequest(http.MethodGet, "/auth/google/login?returnTo=/wishlist", nil))
			loginCookies := loginRec.Result().Cookies()

			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+tc.query, nil)
			for _, c := range loginCookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			h.GoogleCallback(rec, req)

			resp := rec.Result()
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", resp.StatusCode, tc.wantStatus)
			}
			if tc.wantLocation != "" {
				if location := resp.Header.Get("Location"); location != tc.wantLocation {
					t.Fatalf("unexpected redirect location: got=%q want=%q", location, tc.wantLocation)
				}
			}
			if !tc.wantSignedIn {
				return
			}

			signedIn := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, c := range resp.Cookies() {
				signedIn.AddCookie(c)
			}
			data, err := h.sessionManager.GetSession(signedIn.Context(), signedIn)
			if err != nil {
				t.Fatalf("expected signed-in session: %v", err)
			}
			if data.UserID != user.ID || data.Role != models.RoleCustomer || data.OAuthState != "" {
				t.Fatalf("unexpected session: %+v", data)
			}

			stale := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, c := range loginCookies {
				stale.AddCookie(c)
			}
			if _, err := h.sessionManager.GetSession(stale.Context(), stale); err == nil {
				t.Fatal("pre-login session should be gone after sign-in")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, testDeps())
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	resp := rec.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("unexpected status: got=%d want=%d", resp.StatusCode, http.StatusSeeOther)
	}
	cookies := resp.Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cleared session cookie, got %+v", cookies)
	}
}
