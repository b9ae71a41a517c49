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

type wishlistStore interface {
	Add(ctx context.Context, item *models.WishlistItem) error
	ListByUser(ctx context.Context, userID string) ([]*models.WishlistItem, error)
	Remove(ctx context.Context, userID string, productID uuid.UUID) error
}

type productLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type WishlistService struct {
	store    wishlistStore
	products productLookup
	logger   *slog.Logger
}

func NewWishlistService(store wishlistStore, products productLookup, logger *slog.Logger) *WishlistService {
	return &WishlistService{store: store, products: products, logger: logger}
}

func (s *WishlistService) Add(ctx context.Context, userID string, productID uuid.UUID) (*models.WishlistItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || productID == uuid.Nil {
		return nil, invalid("userId and productId are required")
	}
	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.store.Add(ctx, item); err != nil {
		return nil, storeError(err, "wishlist item", "add wishlist item")
	}
	return item, nil
}

// List returns the user's wishlist with the current product attached where it still exists.
func (s *WishlistService) List(ctx context.Context, userID string) ([]*models.WishlistItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId is required")
	}
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "wishlist item", "list wishlist")
	}
	if len(items) == 0 || s.products == nil {
		return items, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		logging.FromContext(ctx, s.logger).Warn("failed to load wishlist products", "error", err, "user_id", userID)
		return items, nil
	}
	for _, item := range items {
		item.Product = catalog.Decorate(products[item.ProductID])
	}
	return items, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID string, productID uuid.UUID) error {
	if strings.TrimSpace(userID) == "" || productID == uuid.Nil {
		return invalid("userId and productId are required")
	}
	return storeError(s.store.Remove(ctx, userID, productID), "wishlist item", "remove wishlist item")
}

type addressStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Address, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	Save(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type AddressService struct {
	store addressStore
}

func NewAddressService(store addressStore) *AddressService {
	return &AddressService{store: store}
}

func (s *AddressService) List(ctx context.Context, userID string) ([]*models.Address, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId is required")
	}
	addresses, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "address", "list addresses")
	}
	return addresses, nil
}

func (s *AddressService) Get(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	address, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "address", "get address")
	}
	return address, nil
}

// Save creates the address when it has no id and replaces it otherwise.
func (s *AddressService) Save(ctx context.Context, address *models.Address) (*models.Address, error) {
	if address == nil {
		return nil, invalid("address is required")
	}
	address.UserID = strings.TrimSpace(address.UserID)
	address.RecipientName = strings.TrimSpace(address.RecipientName)
	address.Address1 = strings.TrimSpace(address.Address1)
	switch {
	case address.UserID == "":
		return nil, invalid("userId is required")
	case address.RecipientName == "":
		return nil, invalid("recipientName is required")
	case address.Address1 == "":
		return nil, invalid("address1 is required")
	case strings.TrimSpace(address.Phone) == "":
		return nil, invalid("phone is required")
	}

	if err := s.store.Save(ctx, address); err != nil {
		return nil, storeError(err, "address", "save address")
	}
	return address, nil
}

func (s *AddressService) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	return storeError(s.store.Delete(ctx, id, userID), "address", "delete address")
}

type userStore interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, role *models.Role) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserService struct {
	store  userStore
	logger *slog.Logger
}

func NewUserService(store userStore, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user", "get user")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(err, "user", "list users")
	}
	return users, nil
}

type UpdateUserInput struct {
	Name *string      `json:"name"`
	Role *models.Role `json:"role"`
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*models.User, error) {
	if input.Role != nil && !input.Role.Valid() {
		return nil, invalid("unknown role: %s", *input.Role)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		input.Name = &name
	}
	user, err := s.store.UpdateProfile(ctx, id, input.Name, input.Role)
	if err != nil {
		return nil, storeError(err, "user", "update user")
	}
	if input.Role != nil {
		logging.FromContext(ctx, s.logger).Info("user role changed", "user_id", id, "role", *input.Role)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return storeError(s.store.Delete(ctx, id), "user", "delete user")
}
