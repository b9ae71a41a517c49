package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/payments"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx, nil).Error("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// writeError maps a service error onto its status code. Unknown errors are
// logged and answered with 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var gatewayErr *payments.GatewayError
	if errors.As(err, &gatewayErr) {
		status := gatewayErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		writeJSON(r.Context(), w, status, errorResponse{Error: gatewayErr.Message, Code: gatewayErr.Code})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidStatusTransition):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.loggerFromContext(r.Context()).Error("request failed", "error", err)
		writeJSON(r.Context(), w, status, errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}
	writeJSON(r.Context(), w, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &services.ValidationError{Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return &services.ValidationError{Message: "request body is required"}
		default:
			return &services.ValidationError{Message: "invalid JSON body"}
		}
	}
	return nil
}

func parseID(value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, &services.ValidationError{Message: fmt.Sprintf("invalid %s", name)}
	}
	return id, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return parseID(mux.Vars(r)["id"], "id")
}

// optionalQueryID parses an optional uuid query parameter.
func optionalQueryID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// actingUserID resolves whose records a request touches. Customers may only
// name themselves; admins may name anyone.
func actingUserID(r *http.Request, requested string) (string, error) {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		return "", services.ErrUnauthorized
	}
	own := sess.UserID.String()
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == own {
		return own, nil
	}
	if !sess.IsAdmin() {
		return "", services.ErrForbidden
	}
	return requested, nil
}

// requireOwner allows admins and the record's own user.
func requireOwner(r *http.Request, ownerID string) error {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		return services.ErrUnauthorized
	}
	if sess.IsAdmin() || ownerID == sess.UserID.String() || ownerID == sess.Email {
		return nil
	}
	return services.ErrForbidden
}
