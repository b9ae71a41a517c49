// Package payments confirms and cancels charges with the configured payment gateway.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Gateway is the upstream that captures and refunds charges.
type Gateway interface {
	Name() string
	Confirm(ctx context.Context, req ConfirmRequest) (*Result, error)
	Cancel(ctx context.Context, req CancelRequest) (*Result, error)
}

type ConfirmRequest struct {
	PaymentKey string
	OrderID    string
	Amount     int64
}

// CancelRequest refunds Amount, or the whole charge when Amount is zero.
type CancelRequest struct {
	PaymentKey string
	Reason     string
	Amount     int64
}

// Result is the normalised gateway answer. Raw keeps the full response body.
type Result struct {
	PaymentKey string
	Status     string
	Method     string
	Amount     int64
	ApprovedAt *time.Time
	Raw        json.RawMessage
}

// GatewayError carries the gateway's own status, code and message.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("payment gateway error (%d): %s", e.StatusCode, e.Message)
}

type Config struct {
	Gateway         string
	TossSecretKey   string
	TossAPIBaseURL  string
	StripeSecretKey string
}

func NewGateway(cfg Config) (Gateway, error) {
	switch cfg.Gateway {
	case "toss", "":
		return NewTossGateway(cfg.TossSecretKey, cfg.TossAPIBaseURL, nil), nil
	case "stripe":
		return NewStripeGateway(cfg.StripeSecretKey), nil
	default:
		return nil, fmt.Errorf("unsupported payment gateway: %s", cfg.Gateway)
	}
}
