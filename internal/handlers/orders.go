package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

const idempotencyKeyHeader = "Idempotency-Key"

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input services.PlaceOrderInput
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

	result, err := h.orders.PlaceOrder(r.Context(), input, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		status = http.StatusOK
	}
	writeJSON(r.Context(), w, status, result.Order)
}

// ListOrders lists the caller's orders. Admins see every customer unless
// customerId narrows it.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.OrderFilter{
		Status: models.OrderStatus(strings.TrimSpace(q.Get("status"))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeMessage(w, http.StatusBadRequest, "unknown order status: "+string(filter.Status))
		return
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		filter.Limit = limit
	}

	requested := strings.TrimSpace(q.Get("customerId"))
	if requested != "" || !session.FromContext(r.Context()).IsAdmin() {
		customerID, err := actingUserID(r, requested)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.CustomerID = customerID
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := requireOwner(r, order.CustomerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, order)
}

// UpdateOrderStatus is the admin status change: {orderId, status, notes?}.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID uuid.UUID          `json:"orderId"`
		Status  models.OrderStatus `json:"status"`
		Notes   *string            `json:"notes"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.OrderID == uuid.Nil || body.Status == "" {
		writeMessage(w, http.StatusBadRequest, "orderId and status are required")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), body.OrderID, body.Status, body.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, order)
}

// PatchOrder updates status, notes or addresses. Customers may edit their own
// order and may only cancel it while it is unpaid.
func (h *Handlers) PatchOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var patch models.OrderPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	if !session.FromContext(r.Context()).IsAdmin() {
		order, err := h.orders.Get(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := requireOwner(r, order.CustomerID); err != nil {
			h.writeError(w, r, err)
			return
		}
		if patch.Status != nil {
			if *patch.Status != models.StatusCancelled {
				h.writeError(w, r, services.ErrForbidden)
				return
			}
			if _, err := h.orders.CancelPending(r.Context(), id); err != nil {
				h.writeError(w, r, err)
				return
			}
			patch.Status = nil
		}
	}

	order, err := h.orders.Patch(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, order)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}
