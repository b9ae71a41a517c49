package models

import (
	"time"

	"github.com/google/uuid"
)

type ShippingStatus string

const (
	ShippingPreparing ShippingStatus = "preparing"
	ShippingInTransit ShippingStatus = "in_transit"
	ShippingDelivered ShippingStatus = "delivered"
)

func (s ShippingStatus) Valid() bool {
	switch s {
	case ShippingPreparing, ShippingInTransit, ShippingDelivered:
		return true
	default:
		return false
	}
}

type ShippingInfo struct {
	ID             uuid.UUID      `json:"id"`
	OrderID        uuid.UUID      `json:"orderId"`
	Carrier        string         `json:"carrier"`
	CarrierName    string         `json:"carrierName,omitempty"`
	TrackingNumber string         `json:"trackingNumber"`
	TrackingURL    string         `json:"trackingUrl,omitempty"`
	Status         ShippingStatus `json:"status"`
	ShippedAt      *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type ShippingUpdate struct {
	Carrier        *string
	TrackingNumber *string
	Status         *ShippingStatus
	DeliveredAt    *time.Time
}
