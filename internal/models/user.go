package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Provider    string     `json:"provider"`
	ProviderID  string     `json:"-"`
	Role        Role       `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Address is a saved address in a user's address book.
type Address struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"userId"`
	Label         string    `json:"label,omitempty"`
	RecipientName string    `json:"recipientName"`
	Phone         string    `json:"phone"`
	PostalCode    string    `json:"postalCode"`
	Address1      string    `json:"address1"`
	Address2      string    `json:"address2,omitempty"`
	IsDefault     bool      `json:"isDefault"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type WishlistItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
