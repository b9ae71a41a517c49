package models

import (
	"time"

	"github.com/google/uuid"
)

type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "requested"
	ReturnApproved  ReturnStatus = "approved"
	ReturnRejected  ReturnStatus = "rejected"
	ReturnCompleted ReturnStatus = "completed"
	ReturnRefunded  ReturnStatus = "refunded"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnRequested, ReturnApproved, ReturnRejected, ReturnCompleted, ReturnRefunded:
		return true
	default:
		return false
	}
}

type ReturnItem struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name,omitempty"`
	Quantity  int       `json:"quantity"`
}

type ReturnRequest struct {
	ID           uuid.UUID    `json:"id"`
	OrderID      uuid.UUID    `json:"orderId"`
	CustomerID   string       `json:"customerId"`
	Items        []ReturnItem `json:"items"`
	Reason       string       `json:"reason"`
	Status       ReturnStatus `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	RefundAmount int64        `json:"refundAmount,omitempty"`
	RequestedAt  time.Time    `json:"requestedAt"`
	ProcessedAt  *time.Time   `json:"processedAt,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type ReturnFilter struct {
	CustomerID string
	OrderID    *uuid.UUID
	Status     ReturnStatus
}

type ReturnUpdate struct {
	Status       ReturnStatus
	Notes        *string
	RefundAmount *int64
	ProcessedAt  *time.Time
	CompletedAt  *time.Time
}
