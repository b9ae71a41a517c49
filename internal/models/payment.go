package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one confirmed gateway charge. GatewayResponse is kept verbatim.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"orderId"`
	CustomerID      string          `json:"customerId"`
	PaymentKey      string          `json:"paymentKey"`
	Gateway         string          `json:"gateway"`
	Amount          int64           `json:"amount"`
	Method          string          `json:"method,omitempty"`
	Status          PaymentStatus   `json:"status"`
	RefundAmount    int64           `json:"refundAmount,omitempty"`
	CancelReason    string          `json:"cancelReason,omitempty"`
	GatewayResponse json.RawMessage `json:"gatewayResponse,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type PaymentFilter struct {
	CustomerID string
	OrderID    *uuid.UUID
}

// PaymentReconciliation marks a captured charge whose local record could not be written.
type PaymentReconciliation struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"orderId"`
	PaymentKey      string          `json:"paymentKey"`
	Amount          int64           `json:"amount"`
	Reason          string          `json:"reason"`
	GatewayResponse json.RawMessage `json:"gatewayResponse,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}
