package handlers

import (
	"net/http"

	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

// GetShipping returns the tracking record of ?orderId.
func (h *Handlers) GetShipping(w http.ResponseWriter, r *http.Request) {
	orderID, err := optionalQueryID(r, "orderId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if orderID == nil {
		writeMessage(w, http.StatusBadRequest, "orderId is required")
		return
	}

	if !session.FromContext(r.Context()).IsAdmin() {
		order, err := h.orders.Get(r.Context(), *orderID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := requireOwner(r, order.CustomerID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	info, err := h.shipping.Get(r.Context(), *orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, info)
}

func (h *Handlers) CreateShipping(w http.ResponseWriter, r *http.Request) {
	var input services.CreateShippingInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.shipping.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, result)
}

func (h *Handlers) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateShippingInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.shipping.Update(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}
