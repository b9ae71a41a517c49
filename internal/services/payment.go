package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/observability"
	"github.com/onceloved/storefront/internal/payments"
)

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByPaymentKey(ctx context.Context, paymentKey string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, refundAmount int64, cancelReason string, gatewayResponse []byte) (*models.Payment, error)
	CreateReconciliation(ctx context.Context, rec *models.PaymentReconciliation) error
}

type paymentOrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaymentCompleted(ctx context.Context, id uuid.UUID, paymentKey, paymentStatus string) (*models.Order, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) error
}

// OrderStatusUpdater moves an order through its state machine.
type OrderStatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus, notes *string) (*models.Order, error)
}

// OrderMailer sends customer mail for order events.
type OrderMailer interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendReturnReceived(ctx context.Context, order *models.Order, ret *models.ReturnRequest) error
	SendReturnRefunded(ctx context.Context, order *models.Order, ret *models.ReturnRequest) error
}

type PaymentService struct {
	payments paymentStore
	orders   paymentOrderStore
	statuses OrderStatusUpdater
	gateway  payments.Gateway
	mailer   OrderMailer
	logger   *slog.Logger
}

func NewPaymentService(paymentStore paymentStore, orderStore paymentOrderStore, statuses OrderStatusUpdater, gateway payments.Gateway, mailer OrderMailer, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		payments: paymentStore,
		orders:   orderStore,
		statuses: statuses,
		gateway:  gateway,
		mailer:   mailer,
		logger:   logger,
	}
}

func (s *PaymentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type ConfirmPaymentInput struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type ConfirmPaymentResult struct {
	Payment                *models.Payment `json:"payment"`
	Order                  *models.Order   `json:"order,omitempty"`
	AlreadyConfirmed       bool            `json:"alreadyConfirmed,omitempty"`
	ReconciliationRequired bool            `json:"reconciliationRequired"`
}

// Confirm captures the charge with the gateway and records it. Nothing local
// changes when the gateway refuses. Once money has moved the call succeeds even
// if recording it fails; that case is flagged and queued for reconciliation.
func (s *PaymentService) Confirm(ctx context.Context, input ConfirmPaymentInput) (*ConfirmPaymentResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.confirm",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("ConfirmPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	recordFailure := func(reason string) {
		observability.Count(ctx, "payment.failed", attribute.String("reason", reason))
	}

	if s.gateway == nil {
		return nil, unavailable("payment gateway")
	}

	input.PaymentKey = strings.TrimSpace(input.PaymentKey)
	input.OrderID = strings.TrimSpace(input.OrderID)
	if input.PaymentKey == "" || input.OrderID == "" {
		recordFailure("invalid_input")
		return nil, invalid("paymentKey and orderId are required")
	}
	if input.Amount <= 0 {
		recordFailure("invalid_input")
		return nil, invalid("amount must be positive")
	}
	orderID, err := uuid.Parse(input.OrderID)
	if err != nil {
		recordFailure("invalid_input")
		return nil, invalid("invalid orderId")
	}

	existing, err := s.payments.GetByPaymentKey(ctx, input.PaymentKey)
	switch {
	case err == nil:
		if existing.OrderID != orderID {
			recordFailure("payment_key_reused")
			return nil, conflict("payment key belongs to another order")
		}
		logger.Info("payment already confirmed", "order_id", orderID, "payment_id", existing.ID)
		return &ConfirmPaymentResult{Payment: existing, AlreadyConfirmed: true}, nil
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		recordFailure("order_lookup_failed")
		return nil, storeError(err, "order", "get order")
	}
	if order.Status != models.StatusPending {
		recordFailure("order_not_pending")
		return nil, invalidTransition(order.Status, models.StatusPaymentCompleted)
	}
	if input.Amount != order.FinalAmount {
		recordFailure("amount_mismatch")
		return nil, invalid("amount %d does not match the order total %d", input.Amount, order.FinalAmount)
	}

	result, err := s.gateway.Confirm(ctx, payments.ConfirmRequest{
		PaymentKey: input.PaymentKey,
		OrderID:    input.OrderID,
		Amount:     input.Amount,
	})
	if err != nil {
		recordFailure("gateway_rejected")
		logger.Warn("payment gateway rejected confirmation", "error", err, "order_id", orderID)
		return nil, err
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		PaymentKey:      input.PaymentKey,
		Gateway:         s.gateway.Name(),
		Amount:          input.Amount,
		Method:          result.Method,
		Status:          models.PaymentCompleted,
		GatewayResponse: result.Raw,
		ApprovedAt:      result.ApprovedAt,
	}
	if result.Amount > 0 {
		payment.Amount = result.Amount
	}
	observability.Count(ctx, "payment.confirmed", attribute.String("gateway", s.gateway.Name()))

	out := &ConfirmPaymentResult{Payment: payment}
	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			if stored, getErr := s.payments.GetByPaymentKey(ctx, input.PaymentKey); getErr == nil {
				return &ConfirmPaymentResult{Payment: stored, AlreadyConfirmed: true}, nil
			}
		}
		s.reconcile(ctx, payment, fmt.Sprintf("failed to record payment: %v", err))
		out.ReconciliationRequired = true
		return out, nil
	}

	updated, err := s.orders.MarkPaymentCompleted(ctx, order.ID, payment.PaymentKey, string(models.PaymentCompleted))
	if err != nil {
		s.reconcile(ctx, payment, fmt.Sprintf("failed to mark order paid: %v", err))
		out.ReconciliationRequired = true
		return out, nil
	}
	out.Order = updated

	logger.Info("payment confirmed", "order_id", order.ID, "payment_id", payment.ID, "amount", payment.Amount)

	if s.mailer != nil {
		if err := s.mailer.SendOrderConfirmation(ctx, updated); err != nil {
			logger.Warn("failed to send order confirmation email", "error", err, "order_id", order.ID)
		}
	}
	return out, nil
}

func (s *PaymentService) reconcile(ctx context.Context, payment *models.Payment, reason string) {
	logger := s.loggerFromContext(ctx)
	observability.Count(ctx, "payment.reconciliation_required")
	logger.Error("captured payment needs reconciliation", "order_id", payment.OrderID, "payment_key", payment.PaymentKey, "reason", reason)

	err := s.payments.CreateReconciliation(ctx, &models.PaymentReconciliation{
		OrderID:         payment.OrderID,
		PaymentKey:      payment.PaymentKey,
		Amount:          payment.Amount,
		Reason:          reason,
		GatewayResponse: payment.GatewayResponse,
	})
	if err != nil {
		logger.Error("failed to record payment reconciliation", "error", err, "order_id", payment.OrderID, "payment_key", payment.PaymentKey)
	}
}

func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	list, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "payment", "list payments")
	}
	return list, nil
}

type UpdatePaymentInput struct {
	PaymentID    uuid.UUID            `json:"paymentId"`
	Status       models.PaymentStatus `json:"status"`
	RefundAmount int64                `json:"refundAmount"`
	CancelReason string               `json:"cancelReason"`
}

type UpdatePaymentResult struct {
	Payment            *models.Payment `json:"payment"`
	OrderStatusUpdated bool            `json:"orderStatusUpdated"`
}

// UpdateStatus refunds or cancels a completed payment through the gateway and
// records the outcome. The order follows on a best-effort basis.
func (s *PaymentService) UpdateStatus(ctx context.Context, input UpdatePaymentInput) (*UpdatePaymentResult, error) {
	if input.Status != models.PaymentRefunded && input.Status != models.PaymentCancelled {
		return nil, invalid("status must be refunded or cancelled")
	}
	if input.RefundAmount < 0 {
		return nil, invalid("refundAmount must be zero or positive")
	}
	if s.gateway == nil {
		return nil, unavailable("payment gateway")
	}

	payment, err := s.payments.GetByID(ctx, input.PaymentID)
	if err != nil {
		return nil, storeError(err, "payment", "get payment")
	}
	if payment.Status != models.PaymentCompleted {
		return nil, invalidTransition(payment.Status, input.Status)
	}

	refundAmount := payment.Amount
	if input.Status == models.PaymentRefunded && input.RefundAmount > 0 {
		if input.RefundAmount > payment.Amount {
			return nil, invalid("refundAmount exceeds the paid amount %d", payment.Amount)
		}
		refundAmount = input.RefundAmount
	}

	cancel := payments.CancelRequest{PaymentKey: payment.PaymentKey, Reason: input.CancelReason}
	if refundAmount < payment.Amount {
		cancel.Amount = refundAmount
	}
	result, err := s.gateway.Cancel(ctx, cancel)
	if err != nil {
		s.loggerFromContext(ctx).Warn("payment gateway rejected cancellation", "error", err, "payment_id", payment.ID)
		return nil, err
	}

	updated, err := s.payments.UpdateStatus(ctx, payment.ID, input.Status, refundAmount, input.CancelReason, result.Raw)
	if err != nil {
		return nil, storeError(err, "payment", "update payment")
	}
	observability.Count(ctx, "payment."+string(input.Status))

	out := &UpdatePaymentResult{Payment: updated}
	if err := s.orders.SetPaymentStatus(ctx, payment.OrderID, string(input.Status)); err != nil {
		s.loggerFromContext(ctx).Warn("failed to stamp order payment status", "error", err, "order_id", payment.OrderID)
	}
	// A partial refund leaves the order where it is.
	if s.statuses != nil && refundAmount == payment.Amount {
		next := models.StatusCancelled
		if input.Status == models.PaymentRefunded {
			next = models.StatusRefunded
		}
		if _, err := s.statuses.UpdateStatus(ctx, payment.OrderID, next, nil); err != nil {
			s.loggerFromContext(ctx).Warn("failed to move order after payment update", "error", err, "order_id", payment.OrderID, "status", next)
		} else {
			out.OrderStatusUpdated = true
		}
	}
	return out, nil
}

// RefundOrder refunds the completed payment of an order. A zero amount refunds
// the full charge. An order whose payment was already refunded returns that
// payment without calling the gateway again, so a retried refund is harmless.
func (s *PaymentService) RefundOrder(ctx context.Context, orderID uuid.UUID, amount int64, reason string) (*UpdatePaymentResult, error) {
	list, err := s.payments.List(ctx, models.PaymentFilter{OrderID: &orderID})
	if err != nil {
		return nil, storeError(err, "payment", "list payments")
	}

	var refunded *models.Payment
	for _, payment := range list {
		switch payment.Status {
		case models.PaymentCompleted:
			return s.UpdateStatus(ctx, UpdatePaymentInput{
				PaymentID:    payment.ID,
				Status:       models.PaymentRefunded,
				RefundAmount: amount,
				CancelReason: reason,
			})
		case models.PaymentRefunded:
			refunded = payment
		}
	}
	if refunded != nil {
		s.loggerFromContext(ctx).Info("order payment already refunded", "order_id", orderID, "payment_id", refunded.ID)
		return &UpdatePaymentResult{Payment: refunded}, nil
	}
	return nil, notFound("completed payment for order")
}
