package handlers

import (
	"net/http"
	"strings"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

// ConfirmPayment finishes a checkout the browser started with the gateway.
func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var input services.ConfirmPaymentInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.payments.Confirm(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	orderID, err := optionalQueryID(r, "orderId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := models.PaymentFilter{OrderID: orderID}

	requested := strings.TrimSpace(r.URL.Query().Get("customerId"))
	if requested != "" || !session.FromContext(r.Context()).IsAdmin() {
		if filter.CustomerID, err = actingUserID(r, requested); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	list, err := h.payments.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, list)
}

// UpdatePayment refunds or cancels a payment: {paymentId, status, refundAmount?, cancelReason?}.
func (h *Handlers) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var input services.UpdatePaymentInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.payments.UpdateStatus(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}
