package handlers

import (
	"net/http"
	"strings"

	"github.com/onceloved/storefront/internal/media"
	"github.com/onceloved/storefront/internal/services"
)

func (h *Handlers) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.notifications.PublicKey()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"publicKey": key})
}

// Subscribe stores the browser's PushSubscription for the caller.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var input services.SubscribeInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := actingUserID(r, input.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	input.UserID = userID

	sub, err := h.notifications.Subscribe(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, sub)
}

// Unsubscribe takes the endpoint from ?endpoint or the JSON body.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimSpace(r.URL.Query().Get("endpoint"))
	if endpoint == "" {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
		endpoint = strings.TrimSpace(body.Endpoint)
	}
	if endpoint == "" {
		writeMessage(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.notifications.Unsubscribe(r.Context(), endpoint); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) SendNotification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		services.Notification
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.UserID) == "" {
		writeMessage(w, http.StatusBadRequest, "userId is required")
		return
	}

	sent, err := h.notifications.SendToUser(r.Context(), body.UserID, body.Notification)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]int{"sent": sent})
}

// SignUpload signs a direct browser upload. The body is optional.
func (h *Handlers) SignUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		writeMessage(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	var req media.SignRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	signature, err := h.uploads.Sign(req)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, signature)
}
