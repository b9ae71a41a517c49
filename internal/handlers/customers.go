package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

func (h *Handlers) ListWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUserID(r, r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := h.wishlist.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, items)
}

func (h *Handlers) AddWishlist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    string    `json:"userId"`
		ProductID uuid.UUID `json:"productId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := actingUserID(r, body.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.ProductID == uuid.Nil {
		writeMessage(w, http.StatusBadRequest, "productId is required")
		return
	}

	item, err := h.wishlist.Add(r.Context(), userID, body.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, item)
}

// RemoveWishlist takes ?userId&productId.
func (h *Handlers) RemoveWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUserID(r, r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	productID, err := parseID(r.URL.Query().Get("productId"), "productId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.wishlist.Remove(r.Context(), userID, productID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) ListAddresses(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUserID(r, r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.addresses.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, list)
}

func (h *Handlers) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var address models.Address
	if err := decodeJSON(w, r, &address); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := actingUserID(r, address.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	address.ID = uuid.Nil
	address.UserID = userID

	saved, err := h.addresses.Save(r.Context(), &address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, saved)
}

// UpdateAddress replaces an address. The owner cannot be changed.
func (h *Handlers) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var address models.Address
	if err := decodeJSON(w, r, &address); err != nil {
		h.writeError(w, r, err)
		return
	}
	if address.ID == uuid.Nil {
		writeMessage(w, http.StatusBadRequest, "id is required")
		return
	}

	existing, err := h.addresses.Get(r.Context(), address.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := requireOwner(r, existing.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	address.UserID = existing.UserID

	saved, err := h.addresses.Save(r.Context(), &address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, saved)
}

// DeleteAddress takes ?id.
func (h *Handlers) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"), "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	existing, err := h.addresses.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := requireOwner(r, existing.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.addresses.Delete(r.Context(), id, existing.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the signed-in user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.Authenticated() {
		h.writeError(w, r, services.ErrUnauthorized)
		return
	}

	user, err := h.users.Get(r.Context(), sess.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, user)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, users)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, user)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var input services.UpdateUserInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, user)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if id == session.FromContext(r.Context()).UserID {
		writeMessage(w, http.StatusBadRequest, "cannot delete the signed-in user")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}
