package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/catalog"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
)

type productStore interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type ProductService struct {
	store     productStore
	validator *catalog.Validator
	logger    *slog.Logger
}

func NewProductService(store productStore, logger *slog.Logger) *ProductService {
	return &ProductService{store: store, validator: catalog.NewValidator(), logger: logger}
}

func (s *ProductService) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product == nil {
		return nil, invalid("product is required")
	}
	product.Name = strings.TrimSpace(product.Name)
	if err := s.validator.ValidateProduct(product); err != nil {
		return nil, invalid("%v", err)
	}
	if err := s.store.Create(ctx, product); err != nil {
		return nil, storeError(err, "product", "create product")
	}

	logging.FromContext(ctx, s.logger).Info("product created", "product_id", product.ID, "name", product.Name)
	return catalog.Decorate(product), nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "product", "get product")
	}
	return catalog.Decorate(product), nil
}

// List filters by the indexed fields in the store and by price range here, on
// the price a shopper sees.
func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	if filter.Category != "" && !catalog.IsKnownCategory(filter.Category) {
		return nil, invalid("unknown category: %s", filter.Category)
	}
	if filter.Condition != "" && !catalog.IsKnownCondition(filter.Condition) {
		return nil, invalid("unknown condition: %s", filter.Condition)
	}
	if filter.MinPrice < 0 || filter.MaxPrice < 0 || (filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice) {
		return nil, invalid("invalid price range")
	}

	products, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "product", "list products")
	}

	filtered := make([]*models.Product, 0, len(products))
	for _, product := range products {
		price := catalog.ListPrice(product)
		if filter.MinPrice > 0 && price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && price > filter.MaxPrice {
			continue
		}
		filtered = append(filtered, catalog.Decorate(product))
	}
	return filtered, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, invalid("product name cannot be empty")
	}
	if patch.Category != nil && !catalog.IsKnownCategory(*patch.Category) {
		return nil, invalid("unknown category: %s", *patch.Category)
	}
	if patch.Condition != nil && !catalog.IsKnownCondition(*patch.Condition) {
		return nil, invalid("unknown condition: %s", *patch.Condition)
	}
	for _, price := range []*int64{patch.OriginalPrice, patch.SalePrice, patch.Price} {
		if price != nil && *price < 0 {
			return nil, invalid("product prices must be zero or positive")
		}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, invalid("product stock must be zero or positive")
	}
	if patch.Options != nil {
		if err := s.validator.ValidateOptions(*patch.Options); err != nil {
			return nil, invalid("%v", err)
		}
	}

	product, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, storeError(err, "product", "update product")
	}
	return catalog.Decorate(product), nil
}

func (s *ProductService) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	active, err := s.store.ToggleActive(ctx, id)
	if err != nil {
		return false, storeError(err, "product", "toggle product")
	}
	logging.FromContext(ctx, s.logger).Info("product visibility changed", "product_id", id, "is_active", active)
	return active, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	return storeError(s.store.Delete(ctx, id), "product", "delete product")
}

func (s *ProductService) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, invalid("ids are required")
	}
	deleted, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, storeError(err, "product", "delete products")
	}
	logging.FromContext(ctx, s.logger).Info("products deleted", "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// Import creates every product of a seed file, stopping at the first failure.
func (s *ProductService) Import(ctx context.Context, seed *catalog.SeedFile) (int, error) {
	if err := s.validator.ValidateSeed(seed); err != nil {
		return 0, invalid("%v", err)
	}
	created := 0
	for _, entry := range seed.Products {
		if err := s.store.Create(ctx, entry.Product()); err != nil {
			return created, storeError(err, "product", "import product "+entry.Name)
		}
		created++
	}
	return created, nil
}
