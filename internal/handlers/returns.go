package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

func (h *Handlers) ListReturns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID, err := optionalQueryID(r, "orderId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := models.ReturnFilter{
		OrderID: orderID,
		Status:  models.ReturnStatus(strings.TrimSpace(q.Get("status"))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeMessage(w, http.StatusBadRequest, "unknown return status: "+string(filter.Status))
		return
	}

	requested := strings.TrimSpace(q.Get("customerId"))
	if requested != "" || !session.FromContext(r.Context()).IsAdmin() {
		if filter.CustomerID, err = actingUserID(r, requested); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	list, err := h.returns.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, list)
}

// FileReturn requests a return for one of the caller's delivered orders.
func (h *Handlers) FileReturn(w http.ResponseWriter, r *http.Request) {
	var input services.FileReturnInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	customerID, err := actingUserID(r, input.CustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	input.CustomerID = customerID
	if input.OrderID == uuid.Nil {
		h.writeError(w, r, &services.ValidationError{Message: "orderId and customerId are required"})
		return
	}

	if !session.FromContext(r.Context()).IsAdmin() {
		order, err := h.orders.Get(r.Context(), input.OrderID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := requireOwner(r, order.CustomerID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	result, err := h.returns.FileReturn(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, result)
}

func (h *Handlers) UpdateReturn(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateReturnInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.returns.Update(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}
