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

// ListProducts serves the storefront catalog. Inactive products are only
// listed for admins asking with includeInactive=true.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.IncludeInactive && !session.FromContext(r.Context()).IsAdmin() {
		filter.IncludeInactive = false
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, products)
}

func productFilterFromQuery(r *http.Request) (models.ProductFilter, error) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Category:  models.Category(strings.TrimSpace(q.Get("category"))),
		Brand:     strings.TrimSpace(q.Get("brand")),
		Condition: models.Condition(strings.TrimSpace(q.Get("condition"))),
	}

	if raw := strings.TrimSpace(q.Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &services.ValidationError{Message: "featured must be true or false"}
		}
		filter.Featured = &featured
	}
	if raw := strings.TrimSpace(q.Get("includeInactive")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &services.ValidationError{Message: "includeInactive must be true or false"}
		}
		filter.IncludeInactive = include
	}

	var err error
	if filter.MinPrice, err = priceParam(q.Get("minPrice"), "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = priceParam(q.Get("maxPrice"), "maxPrice"); err != nil {
		return filter, err
	}
	return filter, nil
}

func priceParam(raw, name string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &services.ValidationError{Message: name + " must be a whole number"}
	}
	return value, nil
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !product.IsActive && !session.FromContext(r.Context()).IsAdmin() {
		writeMessage(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, product)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := decodeJSON(w, r, &product); err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.catalog.Create(r.Context(), &product)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, created)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var patch models.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.catalog.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, product)
}

func (h *Handlers) ToggleProductActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	active, err := h.catalog.ToggleActive(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"id": id, "isActive": active})
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) DeleteProducts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.catalog.DeleteMany(r.Context(), body.IDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]int64{"deleted": deleted})
}
