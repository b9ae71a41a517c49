package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusPaymentCompleted OrderStatus = "payment_completed"
	StatusPreparing        OrderStatus = "preparing"
	StatusShipped          OrderStatus = "shipped"
	StatusDelivered        OrderStatus = "delivered"
	StatusReturned         OrderStatus = "returned"
	StatusCancelled        OrderStatus = "cancelled"
	StatusRefunded         OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:          {StatusPaymentCompleted, StatusCancelled},
	StatusPaymentCompleted: {StatusPreparing, StatusCancelled, StatusRefunded},
	StatusPreparing:        {StatusShipped, StatusCancelled},
	StatusShipped:          {StatusDelivered, StatusReturned, StatusCancelled},
	StatusDelivered:        {StatusReturned, StatusCancelled, StatusRefunded},
	StatusReturned:         {StatusRefunded},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaymentCompleted, StatusPreparing, StatusShipped,
		StatusDelivered, StatusReturned, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors lists every status that may move to next.
func Predecessors(next OrderStatus) []OrderStatus {
	var from []OrderStatus
	for _, status := range []OrderStatus{
		StatusPending, StatusPaymentCompleted, StatusPreparing, StatusShipped,
		StatusDelivered, StatusReturned, StatusCancelled, StatusRefunded,
	} {
		if status.CanTransitionTo(next) {
			from = append(from, status)
		}
	}
	return from
}

type SelectedOption struct {
	ValueID string `json:"valueId"`
}

// OrderItem is a snapshot of the product at order time.
type OrderItem struct {
	ProductID       uuid.UUID                 `json:"productId"`
	Name            string                    `json:"name"`
	Quantity        int                       `json:"quantity"`
	Price           int64                     `json:"price"`
	Image           string                    `json:"image,omitempty"`
	SelectedOptions map[string]SelectedOption `json:"selectedOptions,omitempty"`
}

type Order struct {
	ID              uuid.UUID      `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	CustomerID      string         `json:"customerId"`
	Items           []OrderItem    `json:"items"`
	Status          OrderStatus    `json:"status"`
	TotalAmount     int64          `json:"totalAmount"`
	ShippingFee     int64          `json:"shippingFee"`
	FinalAmount     int64          `json:"finalAmount"`
	ShippingAddress *PostalAddress `json:"shippingAddress,omitempty"`
	BillingAddress  *PostalAddress `json:"billingAddress,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	PaymentKey      string         `json:"paymentKey,omitempty"`
	PaymentStatus   string         `json:"paymentStatus,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// PostalAddress is the address snapshot embedded in an order.
type PostalAddress struct {
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	PostalCode    string `json:"postalCode"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2,omitempty"`
	Memo          string `json:"memo,omitempty"`
}

type OrderFilter struct {
	CustomerID string
	Status     OrderStatus
	Limit      int
}

// OrderPatch is a partial order update. Status changes go through the transition table.
type OrderPatch struct {
	Status          *OrderStatus   `json:"status"`
	Notes           *string        `json:"notes"`
	ShippingAddress *PostalAddress `json:"shippingAddress"`
	BillingAddress  *PostalAddress `json:"billingAddress"`
}
