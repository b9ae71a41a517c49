package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/models"
)

type memoryWishlist struct {
	mu    sync.Mutex
	items []*models.WishlistItem
}

func (m *memoryWishlist) Add(_ context.Context, item *models.WishlistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return db.ErrDuplicate
		}
	}
	item.ID = uuid.New()
	stored := *item
	m.items = append(m.items, &stored)
	return nil
}

func (m *memoryWishlist) ListByUser(_ context.Context, userID string) ([]*models.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WishlistItem
	for _, item := range m.items {
		if item.UserID == userID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryWishlist) Remove(_ context.Context, userID string, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

type productSet map[uuid.UUID]*models.Product

func (p productSet) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := map[uuid.UUID]*models.Product{}
	for _, id := range ids {
		if product, ok := p[id]; ok {
			copied := *product
			out[id] = &copied
		}
	}
	return out, nil
}

func TestWishlistService(t *testing.T) {
	t.Parallel()

	chair := &models.Product{ID: uuid.New(), Name: "Egg Chair", Category: models.CategoryChair, IsActive: true}
	gone := uuid.New()
	service := NewWishlistService(&memoryWishlist{}, productSet{chair.ID: chair}, discardLogger())
	ctx := context.Background()

	_, err := service.Add(ctx, "customer-1", chair.ID)
	require.NoError(t, err)
	_, err = service.Add(ctx, "customer-1", gone)
	require.NoError(t, err)

	_, err = service.Add(ctx, "customer-1", chair.ID)
	assert.ErrorIs(t, err, ErrConflict)

	items, err := service.List(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Egg Chair", items[0].Product.Name)
	assert.NotEmpty(t, items[0].Product.CategoryLabel)
	assert.Nil(t, items[1].Product)

	require.NoError(t, service.Remove(ctx, "customer-1", chair.ID))
	assert.ErrorIs(t, service.Remove(ctx, "customer-1", chair.ID), ErrNotFound)

	_, err = service.List(ctx, " ")
	assert.ErrorIs(t, err, ErrValidation)
}

type memoryAddresses struct {
	saved []*models.Address
}

func (m *memoryAddresses) ListByUser(_ context.Context, userID string) ([]*models.Address, error) {
	var out []*models.Address
	for _, a := range m.saved {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAddresses) GetByID(_ context.Context, id uuid.UUID) (*models.Address, error) {
	for _, a := range m.saved {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memoryAddresses) Save(_ context.Context, address *models.Address) error {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	m.saved = append(m.saved, address)
	return nil
}

func (m *memoryAddresses) Delete(_ context.Context, id uuid.UUID, userID string) error {
	for i, a := range m.saved {
		if a.ID == id && a.UserID == userID {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func TestAddressService_Save(t *testing.T) {
	t.Parallel()

	valid := func() *models.Address {
		return &models.Address{UserID: "customer-1", RecipientName: " 홍길동 ", Phone: "010-1234-5678", PostalCode: "04524", Address1: "서울 중구 세종대로 110"}
	}

	tests := []struct {
		name   string
		mutate func(a *models.Address)
		valid  bool
	}{
		{name: "complete address", mutate: func(*models.Address) {}, valid: true},
		{name: "missing recipient", mutate: func(a *models.Address) { a.RecipientName = "" }},
		{name: "missing phone", mutate: func(a *models.Address) { a.Phone = " " }},
		{name: "missing street", mutate: func(a *models.Address) { a.Address1 = "" }},
		{name: "missing owner", mutate: func(a *models.Address) { a.UserID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service := NewAddressService(&memoryAddresses{})
			address := valid()
			tt.mutate(address)

			saved, err := service.Save(context.Background(), address)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, saved.ID)
			assert.Equal(t, "홍길동", saved.RecipientName)
		})
	}
}

type memoryUsers struct {
	users map[uuid.UUID]*models.User
}

func (m *memoryUsers) Upsert(_ context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) List(_ context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	return out, nil
}

func (m *memoryUsers) UpdateProfile(_ context.Context, id uuid.UUID, name *string, role *models.Role) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if name != nil {
		user.Name = *name
	}
	if role != nil {
		user.Role = *role
	}
	return user, nil
}

func (m *memoryUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func TestUserService_Update(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "a@example.com", Name: "A", Role: models.RoleCustomer}
	service := NewUserService(&memoryUsers{users: map[uuid.UUID]*models.User{user.ID: user}}, discardLogger())
	ctx := context.Background()

	admin := models.RoleAdmin
	updated, err := service.Update(ctx, user.ID, UpdateUserInput{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	bogus := models.Role("owner")
	_, err = service.Update(ctx, user.ID, UpdateUserInput{Role: &bogus})
	assert.ErrorIs(t, err, ErrValidation)

	blank := "  "
	_, err = service.Update(ctx, user.ID, UpdateUserInput{Name: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, service.Delete(ctx, user.ID))
	assert.ErrorIs(t, service.Delete(ctx, user.ID), ErrNotFound)
}
