package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/observability"
)

type returnStore interface {
	Create(ctx context.Context, request *models.ReturnRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	Exists(ctx context.Context, orderID uuid.UUID, customerID string) (bool, error)
	List(ctx context.Context, filter models.ReturnFilter) ([]*models.ReturnRequest, error)
	Update(ctx context.Context, id uuid.UUID, update models.ReturnUpdate) (*models.ReturnRequest, error)
}

type orderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// ReturnRefunder pays back the charge of a returned order.
type ReturnRefunder interface {
	RefundOrder(ctx context.Context, orderID uuid.UUID, amount int64, reason string) (*UpdatePaymentResult, error)
}

type ReturnService struct {
	returns  returnStore
	orders   orderReader
	statuses OrderStatusUpdater
	refunds  ReturnRefunder
	mailer   OrderMailer
	logger   *slog.Logger
	now      func() time.Time
}

func NewReturnService(returns returnStore, orders orderReader, statuses OrderStatusUpdater, refunds ReturnRefunder, mailer OrderMailer, logger *slog.Logger) *ReturnService {
	return &ReturnService{
		returns:  returns,
		orders:   orders,
		statuses: statuses,
		refunds:  refunds,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ReturnService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type FileReturnInput struct {
	OrderID    uuid.UUID           `json:"orderId"`
	CustomerID string              `json:"customerId"`
	Items      []models.ReturnItem `json:"items"`
	Reason     string              `json:"reason"`
}

type FileReturnResult struct {
	Return             *models.ReturnRequest `json:"return"`
	OrderStatusUpdated bool                  `json:"orderStatusUpdated"`
}

var errReturnExists = invalid("a return has already been requested for this order")

// FileReturn records a return request for a delivered order. The preconditions
// are checked in a fixed order and the first failure is reported.
func (s *ReturnService) FileReturn(ctx context.Context, input FileReturnInput) (*FileReturnResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.return.file",
		sentry.WithOpName("service.return"),
		sentry.WithDescription("FileReturn"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	reject := func(reason string, err error) (*FileReturnResult, error) {
		observability.Count(ctx, "return.rejected", attribute.String("reason", reason))
		return nil, err
	}

	input.CustomerID = strings.TrimSpace(input.CustomerID)
	input.Reason = strings.TrimSpace(input.Reason)
	if input.OrderID == uuid.Nil || input.CustomerID == "" {
		return reject("invalid_input", invalid("orderId and customerId are required"))
	}
	if input.Reason == "" {
		return reject("invalid_input", invalid("reason is required"))
	}

	order, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return reject("order_not_found", notFound("order"))
		}
		return nil, storeError(err, "order", "get order")
	}
	if order.Status != models.StatusDelivered {
		return reject("not_delivered", invalid("returns are only accepted for delivered orders (current status: %s)", order.Status))
	}
	if order.PaymentStatus != "" && order.PaymentStatus != string(models.PaymentCompleted) {
		return reject("payment_not_completed", invalid("returns require a completed payment (payment status: %s)", order.PaymentStatus))
	}
	if order.Status == models.StatusReturned || order.Status == models.StatusRefunded {
		return reject("already_returned", invalid("order has already been returned"))
	}
	exists, err := s.returns.Exists(ctx, order.ID, input.CustomerID)
	if err != nil {
		return nil, storeError(err, "return", "check existing returns")
	}
	if exists {
		return reject("duplicate", errReturnExists)
	}

	items := input.Items
	if len(items) == 0 {
		items = make([]models.ReturnItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, models.ReturnItem{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
		}
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return reject("invalid_input", invalid("items[%d].quantity must be positive", i))
		}
	}

	request := &models.ReturnRequest{
		OrderID:    order.ID,
		CustomerID: input.CustomerID,
		Items:      items,
		Reason:     input.Reason,
		Status:     models.ReturnRequested,
	}
	if err := s.returns.Create(ctx, request); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return reject("duplicate", errReturnExists)
		}
		return nil, storeError(err, "return", "create return")
	}
	observability.Count(ctx, "return.requested")
	logger.Info("return requested", "return_id", request.ID, "order_id", order.ID, "customer_id", input.CustomerID)

	out := &FileReturnResult{Return: request}
	if s.statuses != nil {
		if updated, err := s.statuses.UpdateStatus(ctx, order.ID, models.StatusReturned, nil); err != nil {
			logger.Warn("failed to mark order returned", "error", err, "order_id", order.ID)
		} else {
			out.OrderStatusUpdated = true
			order = updated
		}
	}
	if s.mailer != nil {
		if err := s.mailer.SendReturnReceived(ctx, order, request); err != nil {
			logger.Warn("failed to send return received email", "error", err, "return_id", request.ID)
		}
	}
	return out, nil
}

func (s *ReturnService) Get(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := s.returns.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "return", "get return")
	}
	return request, nil
}

func (s *ReturnService) List(ctx context.Context, filter models.ReturnFilter) ([]*models.ReturnRequest, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown return status: %s", filter.Status)
	}
	list, err := s.returns.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "return", "list returns")
	}
	return list, nil
}

type UpdateReturnInput struct {
	ReturnID     uuid.UUID           `json:"returnId"`
	Status       models.ReturnStatus `json:"status"`
	Notes        *string             `json:"notes"`
	RefundAmount *int64              `json:"refundAmount"`
}

type UpdateReturnResult struct {
	Return          *models.ReturnRequest `json:"return"`
	Payment         *models.Payment       `json:"payment,omitempty"`
	PaymentRefunded bool                  `json:"paymentRefunded"`
}

const returnRefundReason = "반품 환불"

// Update is the admin decision on a return. Approval or rejection stamps
// processedAt; completion or refund stamps completedAt. Moving a return to
// refunded pays the charge back first; a failed refund leaves the return as it
// was. The refund mail is best effort.
func (s *ReturnService) Update(ctx context.Context, input UpdateReturnInput) (*UpdateReturnResult, error) {
	if !input.Status.Valid() {
		return nil, invalid("unknown return status: %s", input.Status)
	}
	if input.RefundAmount != nil && *input.RefundAmount < 0 {
		return nil, invalid("refundAmount must be zero or positive")
	}

	logger := s.loggerFromContext(ctx)
	update := models.ReturnUpdate{
		Status:       input.Status,
		Notes:        input.Notes,
		RefundAmount: input.RefundAmount,
	}
	now := s.now().UTC()
	switch input.Status {
	case models.ReturnApproved, models.ReturnRejected:
		update.ProcessedAt = &now
	case models.ReturnCompleted, models.ReturnRefunded:
		update.CompletedAt = &now
	}

	out := &UpdateReturnResult{}
	refunding := false
	if input.Status == models.ReturnRefunded {
		current, err := s.returns.GetByID(ctx, input.ReturnID)
		if err != nil {
			return nil, storeError(err, "return", "get return")
		}
		if current.Status != models.ReturnRefunded {
			if s.refunds == nil {
				return nil, unavailable("refunds")
			}
			var amount int64
			if input.RefundAmount != nil {
				amount = *input.RefundAmount
			}
			refund, err := s.refunds.RefundOrder(ctx, current.OrderID, amount, returnRefundReason)
			if err != nil {
				logger.Warn("return refund failed", "error", err, "return_id", current.ID, "order_id", current.OrderID)
				return nil, err
			}
			out.Payment = refund.Payment
			out.PaymentRefunded = true
			refunding = true
			if input.RefundAmount == nil && refund.Payment != nil {
				refunded := refund.Payment.RefundAmount
				update.RefundAmount = &refunded
			}
		}
	}

	request, err := s.returns.Update(ctx, input.ReturnID, update)
	if err != nil {
		if refunding {
			logger.Error("refund issued but return not updated", "error", err, "return_id", input.ReturnID)
		}
		return nil, storeError(err, "return", "update return")
	}
	out.Return = request
	observability.Count(ctx, "return.updated", attribute.String("status", string(input.Status)))
	logger.Info("return updated", "return_id", request.ID, "status", request.Status, "payment_refunded", out.PaymentRefunded)

	if refunding && s.mailer != nil {
		order, err := s.orders.GetByID(ctx, request.OrderID)
		if err == nil {
			err = s.mailer.SendReturnRefunded(ctx, order, request)
		}
		if err != nil {
			logger.Warn("failed to send refund email", "error", err, "return_id", request.ID)
		}
	}
	return out, nil
}
