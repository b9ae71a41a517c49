package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
)

// StripeGateway treats the payment key as a PaymentIntent id. An intent held for
// manual capture is captured on confirmation.
type StripeGateway struct {
	client *stripe.Client
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{client: stripe.NewClient(secretKey)}
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) Confirm(ctx context.Context, req ConfirmRequest) (*Result, error) {
	intent, err := g.client.V1PaymentIntents.Retrieve(ctx, req.PaymentKey, nil)
	if err != nil {
		return nil, fromStripeError(err)
	}

	if orderID := intent.Metadata["order_id"]; orderID != "" && orderID != req.OrderID {
		return nil, &GatewayError{StatusCode: http.StatusBadRequest, Code: "ORDER_MISMATCH", Message: "payment intent belongs to another order"}
	}
	if intent.Amount != req.Amount {
		return nil, &GatewayError{StatusCode: http.StatusBadRequest, Code: "AMOUNT_MISMATCH", Message: "payment amount does not match"}
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
	case stripe.PaymentIntentStatusRequiresCapture:
		intent, err = g.client.V1PaymentIntents.Capture(ctx, req.PaymentKey, &stripe.PaymentIntentCaptureParams{})
		if err != nil {
			return nil, fromStripeError(err)
		}
	default:
		return nil, &GatewayError{
			StatusCode: http.StatusBadRequest,
			Code:       strings.ToUpper(string(intent.Status)),
			Message:    fmt.Sprintf("payment intent is %s", intent.Status),
		}
	}

	raw, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment intent: %w", err)
	}

	result := &Result{
		PaymentKey: intent.ID,
		Status:     "DONE",
		Amount:     intent.AmountReceived,
		Raw:        raw,
	}
	if len(intent.PaymentMethodTypes) > 0 {
		result.Method = intent.PaymentMethodTypes[0]
	}
	if intent.Created > 0 {
		approvedAt := time.Unix(intent.Created, 0).UTC()
		result.ApprovedAt = &approvedAt
	}
	return result, nil
}

func (g *StripeGateway) Cancel(ctx context.Context, req CancelRequest) (*Result, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.PaymentKey),
	}
	if req.Amount > 0 {
		params.Amount = stripe.Int64(req.Amount)
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		params.AddMetadata("cancel_reason", reason)
	}

	refund, err := g.client.V1Refunds.Create(ctx, params)
	if err != nil {
		return nil, fromStripeError(err)
	}

	raw, err := json.Marshal(refund)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refund: %w", err)
	}
	return &Result{
		PaymentKey: req.PaymentKey,
		Status:     strings.ToUpper(string(refund.Status)),
		Amount:     refund.Amount,
		Raw:        raw,
	}, nil
}

func fromStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		return &GatewayError{StatusCode: status, Code: string(stripeErr.Code), Message: stripeErr.Msg}
	}
	return fmt.Errorf("failed to call stripe: %w", err)
}
