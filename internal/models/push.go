package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription is a browser push endpoint. Keys are stored encrypted.
type PushSubscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Endpoint  string    `json:"endpoint"`
	P256DH    string    `json:"-"`
	Auth      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
