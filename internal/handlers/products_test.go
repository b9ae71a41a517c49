package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
)

func TestListProducts_Filters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		target      string
		admin       bool
		wantStatus  int
		wantFilter  models.ProductFilter
		wantFeature bool
	}{
		{
			name:       "storefront filters",
			target:     "/api/products?category=chair&brand=vitra&condition=excellent&minPrice=100000&maxPrice=900000",
			wantStatus: http.StatusOK,
			wantFilter: models.ProductFilter{Category: models.CategoryChair, Brand: "vitra", Condition: models.ConditionExcellent, MinPrice: 100000, MaxPrice: 900000},
		},
		{
			name:        "featured only",
			target:      "/api/products?featured=true",
			wantStatus:  http.StatusOK,
			wantFeature: true,
		},
		{
			name:       "guests never see inactive products",
			target:     "/api/products?includeInactive=true",
			wantStatus: http.StatusOK,
			wantFilter: models.ProductFilter{},
		},
		{
			name:       "admins may include inactive products",
			target:     "/api/products?includeInactive=true",
			admin:      true,
			wantStatus: http.StatusOK,
			wantFilter: models.ProductFilter{IncludeInactive: true},
		},
		{name: "bad price", target: "/api/products?minPrice=cheap", wantStatus: http.StatusBadRequest},
		{name: "bad featured", target: "/api/products?featured=sometimes", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			deps := testDeps()
			catalog := deps.Catalog.(*fakeCatalog)
			h := newTestHandlers(t, deps)

			var sess = customer()
			if tc.admin {
				sess = admin()
			}
			rec := httptest.NewRecorder()
			h.ListProducts(rec, newRequest(http.MethodGet, tc.target, "", sess, nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			got := catalog.lastFilter
			if tc.wantFeature {
				if got.Featured == nil || !*got.Featured {
					t.Fatalf("expected featured filter, got %+v", got)
				}
				return
			}
			if got != tc.wantFilter {
				t.Fatalf("expected filter %+v, got %+v", tc.wantFilter, got)
			}
		})
	}
}

func TestGetProduct_HidesInactiveFromShoppers(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	product := &models.Product{ID: uuid.New(), Name: "Eames Lounge Chair", IsActive: false}
	deps.Catalog.(*fakeCatalog).products[product.ID] = product
	h := newTestHandlers(t, deps)
	vars := map[string]string{"id": product.ID.String()}

	rec := httptest.NewRecorder()
	h.GetProduct(rec, newRequest(http.MethodGet, "/api/products/x", "", nil, vars))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("guest: expected %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetProduct(rec, newRequest(http.MethodGet, "/api/products/x", "", admin(), vars))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected %d, got %d", http.StatusOK, rec.Code)
	}
	if got := decodeBody[models.Product](t, rec); got.Name != product.Name {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	catalog := deps.Catalog.(*fakeCatalog)
	h := newTestHandlers(t, deps)

	rec := httptest.NewRecorder()
	h.CreateProduct(rec, newRequest(http.MethodPost, "/api/products", `{"name":"PH5 Pendant","category":"lighting","salePrice":890000,"stock":1}`, admin(), nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if catalog.created == nil || catalog.created.SalePrice != 890000 {
		t.Fatalf("unexpected created product %+v", catalog.created)
	}

	rec = httptest.NewRecorder()
	h.CreateProduct(rec, newRequest(http.MethodPost, "/api/products", `{"name":"  "}`, admin(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank name: expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestDeleteProducts(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	catalog := deps.Catalog.(*fakeCatalog)
	h := newTestHandlers(t, deps)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	rec := httptest.NewRecorder()
	h.DeleteProducts(rec, newRequest(http.MethodDelete, "/api/products", `{"ids":["`+ids[0].String()+`","`+ids[1].String()+`"]}`, admin(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	if got := decodeBody[map[string]int64](t, rec); got["deleted"] != 2 {
		t.Fatalf("expected 2 deleted, got %v", got)
	}
	if len(catalog.deleted) != 2 || catalog.deleted[1] != ids[1] {
		t.Fatalf("unexpected ids %v", catalog.deleted)
	}
}
