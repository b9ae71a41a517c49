package handlers

import (
	"net/http"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

func (h *Handlers) ListChatSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUserID(r, r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.chat.ListSessions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, list)
}

func (h *Handlers) CreateChatSession(w http.ResponseWriter, r *http.Request) {
	var input services.CreateChatSessionInput
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

	chat, err := h.chat.CreateSession(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, chat)
}

// ownedChatSession loads the {id} session and checks the caller may use it.
func (h *Handlers) ownedChatSession(r *http.Request) (*models.ChatSession, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	chat, err := h.chat.GetSession(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(r, chat.UserID); err != nil {
		return nil, err
	}
	return chat, nil
}

func (h *Handlers) GetChatSession(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChatSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, chat)
}

func (h *Handlers) UpdateChatSession(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChatSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var input services.UpdateChatSessionInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.chat.UpdateSession(r.Context(), chat.ID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, updated)
}

func (h *Handlers) DeleteChatSession(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChatSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.chat.DeleteSession(r.Context(), chat.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChatSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	messages, err := h.chat.ListMessages(r.Context(), chat.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, messages)
}

// AppendChatMessage posts {content, role?}. Customers always write as "user";
// admins may answer as "admin". Assistant messages only come from AskAssistant.
func (h *Handlers) AppendChatMessage(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChatSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var body struct {
		Role    models.MessageRole `json:"role"`
		Content string             `json:"content"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	role := models.MessageUser
	switch body.Role {
	case "", models.MessageUser:
	case models.MessageAdmin:
		if !session.FromContext(r.Context()).IsAdmin() {
			h.writeError(w, r, services.ErrForbidden)
			return
		}
		role = models.MessageAdmin
	default:
		writeMessage(w, http.StatusBadRequest, "role must be user or admin")
		return
	}

	message, err := h.chat.AppendMessage(r.Context(), chat.ID, role, body.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, message)
}

// AskAssistant answers {message, productId?, sessionId?}. Guests may ask
// without a session; continuing a stored session requires owning it.
func (h *Handlers) AskAssistant(w http.ResponseWriter, r *http.Request) {
	var input services.AskInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	if input.SessionID != nil {
		chat, err := h.chat.GetSession(r.Context(), *input.SessionID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := requireOwner(r, chat.UserID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	result, err := h.chat.Ask(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}
