package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

// GoogleLogin starts the OAuth flow. The state and the page to return to are
// kept in a fresh pre-login session.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if h.auth == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}

	start, err := h.auth.StartGoogleLogin()
	if err != nil {
		if errors.Is(err, services.ErrAuthUnavailable) {
			writeMessage(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
			return
		}
		logger.Error("failed to start google login", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to start sign-in")
		return
	}

	if _, err := h.sessionManager.Rotate(ctx, w, r, &session.Data{
		OAuthState: start.State,
		ReturnTo:   safeReturnTo(r.URL.Query().Get("returnTo")),
	}); err != nil {
		logger.Error("failed to store oauth state", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to start sign-in")
		return
	}

	http.Redirect(w, r, start.AuthorizationURL, http.StatusSeeOther)
}

// GoogleCallback verifies the state, signs the user in and replaces the
// pre-login session.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if h.auth == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}

	pending, err := h.sessionManager.GetSession(ctx, r)
	if err != nil || pending.OAuthState == "" {
		logger.Warn("oauth callback without pending login; restarting", "error", err)
		http.Redirect(w, r, "/auth/google/login", http.StatusSeeOther)
		return
	}

	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" || state != pending.OAuthState {
		logger.Error("oauth state mismatch")
		writeMessage(w, http.StatusBadRequest, "Invalid state")
		return
	}

	if oauthErr := strings.TrimSpace(r.URL.Query().Get("error")); oauthErr != "" {
		logger.Warn("google sign-in was not granted", "oauth_error", oauthErr)
		writeMessage(w, http.StatusUnauthorized, "Sign-in was cancelled")
		return
	}

	user, err := h.auth.CompleteGoogleOAuth(ctx, r.URL.Query().Get("code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAuthInvalidCode):
			writeMessage(w, http.StatusBadRequest, "No code provided")
		case errors.Is(err, services.ErrAuthUnverified):
			writeMessage(w, http.StatusForbidden, "Google account email is not verified")
		case errors.Is(err, services.ErrAuthCodeExchange):
			logger.Error("failed to exchange oauth code", "error", err)
			writeMessage(w, http.StatusBadGateway, "Failed to authenticate")
		case errors.Is(err, services.ErrAuthGetGoogleUser):
			logger.Error("failed to get google user", "error", err)
			writeMessage(w, http.StatusBadGateway, "Failed to get user info")
		default:
			logger.Error("failed to complete oauth callback", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Failed to authenticate")
		}
		return
	}

	if _, err := h.sessionManager.Rotate(ctx, w, r, &session.Data{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}); err != nil {
		logger.Error("failed to create session", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	logger.Info("session created successfully", "user_id", user.ID, "role", user.Role)
	http.Redirect(w, r, safeReturnTo(pending.ReturnTo), http.StatusSeeOther)
}

// Logout destroys the session and returns to the storefront.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.DestroySession(r.Context(), w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeReturnTo keeps redirects on this site.
func safeReturnTo(value string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") || strings.Contains(value, `\`) {
		return "/"
	}
	return value
}
