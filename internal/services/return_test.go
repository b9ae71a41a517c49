package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onceloved/storefront/internal/models"
)

type returnFixture struct {
	orders   *memoryOrders
	returns  *memoryReturns
	payments *memoryPayments
	gateway  *fakeGateway
	mailer   *recordingMailer
	service  *ReturnService
}

func newReturnFixture(t *testing.T) *returnFixture {
	t.Helper()

	f := &returnFixture{
		orders:   newMemoryOrders(),
		returns:  newMemoryReturns(),
		payments: newMemoryPayments(),
		gateway:  &fakeGateway{},
		mailer:   &recordingMailer{},
	}
	statuses := NewOrderService(f.orders, nil, nil, nil, discardLogger())
	refunds := NewPaymentService(f.payments, f.orders, statuses, f.gateway, f.mailer, discardLogger())
	f.service = NewReturnService(f.returns, f.orders, statuses, refunds, f.mailer, discardLogger())
	return f
}

func (f *returnFixture) order(status models.OrderStatus, paymentStatus string) *models.Order {
	return f.orders.addOrder(&models.Order{
		OrderNumber:   "ORD-20260301100000-0001",
		CustomerID:    "customer-1",
		Status:        status,
		PaymentStatus: paymentStatus,
		Items:         []models.OrderItem{{ProductID: uuid.New(), Name: "chair", Quantity: 2, Price: 30000}},
		TotalAmount:   60000,
		FinalAmount:   60000,
	})
}

func (f *returnFixture) paid(t *testing.T, order *models.Order) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		PaymentKey: "tgen_" + order.ID.String(),
		Gateway:    "toss",
		Amount:     order.FinalAmount,
		Status:     models.PaymentCompleted,
	}
	require.NoError(t, f.payments.Create(context.Background(), payment))
	return payment
}

func (f *returnFixture) filed(t *testing.T, order *models.Order) *models.ReturnRequest {
	t.Helper()
	result, err := f.service.FileReturn(context.Background(), FileReturnInput{OrderID: order.ID, CustomerID: "customer-1", Reason: "파손"})
	require.NoError(t, err)
	return result.Return
}

func TestFileReturn_AcceptsDeliveredOrder(t *testing.T) {
	t.Parallel()

	f := newReturnFixture(t)
	order := f.order(models.StatusDelivered, "completed")

	result, err := f.service.FileReturn(context.Background(), FileReturnInput{
		OrderID:    order.ID,
		CustomerID: "customer-1",
		Reason:     "색상이 사진과 달라요",
	})
	require.NoError(t, err)

	assert.True(t, result.OrderStatusUpdated)
	assert.Equal(t, models.ReturnRequested, result.Return.Status)
	require.Len(t, result.Return.Items, 1)
	assert.Equal(t, 2, result.Return.Items[0].Quantity)

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, stored.Status)
	assert.Equal(t, []uuid.UUID{order.ID}, f.mailer.returns)
}

func TestFileReturn_Preconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        models.OrderStatus
		paymentStatus string
		unknownOrder  bool
		reason        string
		want          error
	}{
		{name: "unknown order", status: models.StatusDelivered, unknownOrder: true, reason: "x", want: ErrNotFound},
		{name: "not delivered yet", status: models.StatusShipped, paymentStatus: "completed", reason: "x", want: ErrValidation},
		{name: "pending order", status: models.StatusPending, reason: "x", want: ErrValidation},
		{name: "payment refunded", status: models.StatusDelivered, paymentStatus: "refunded", reason: "x", want: ErrValidation},
		{name: "already returned", status: models.StatusReturned, paymentStatus: "completed", reason: "x", want: ErrValidation},
		{name: "missing reason", status: models.StatusDelivered, paymentStatus: "completed", reason: " ", want: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newReturnFixture(t)
			order := f.order(tt.status, tt.paymentStatus)
			orderID := order.ID
			if tt.unknownOrder {
				orderID = uuid.New()
			}

			_, err := f.service.FileReturn(context.Background(), FileReturnInput{OrderID: orderID, CustomerID: "customer-1", Reason: tt.reason})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			stored, _ := f.orders.GetByID(context.Background(), order.ID)
			assert.Equal(t, tt.status, stored.Status)
			assert.Empty(t, f.returns.returns)
		})
	}
}

func TestFileReturn_DuplicateIsRejected(t *testing.T) {
	t.Parallel()

	f := newReturnFixture(t)
	order := f.order(models.StatusDelivered, "")
	input := FileReturnInput{OrderID: order.ID, CustomerID: "customer-1", Reason: "파손"}

	_, err := f.service.FileReturn(context.Background(), input)
	require.NoError(t, err)

	// Put the order back so only the duplicate check can fail.
	_, err = f.orders.TransitionStatus(context.Background(), order.ID, models.StatusDelivered, []models.OrderStatus{models.StatusReturned})
	require.NoError(t, err)

	_, err = f.service.FileReturn(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Len(t, f.returns.returns, 1)
}

func TestUpdateReturn_StampsTimes(t *testing.T) {
	t.Parallel()

	f := newReturnFixture(t)
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fixed }

	order := f.order(models.StatusDelivered, "completed")
	f.paid(t, order)
	filed := f.filed(t, order)

	approved, err := f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: models.ReturnApproved})
	require.NoError(t, err)
	require.NotNil(t, approved.Return.ProcessedAt)
	assert.True(t, approved.Return.ProcessedAt.Equal(fixed))
	assert.Nil(t, approved.Return.CompletedAt)
	assert.False(t, approved.PaymentRefunded)
	assert.Empty(t, f.gateway.cancels)

	refund := int64(60000)
	refunded, err := f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: models.ReturnRefunded, RefundAmount: &refund})
	require.NoError(t, err)
	require.NotNil(t, refunded.Return.CompletedAt)
	assert.EqualValues(t, 60000, refunded.Return.RefundAmount)

	_, err = f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: "lost"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestUpdateReturn_RefundPaysBack(t *testing.T) {
	t.Parallel()

	f := newReturnFixture(t)
	order := f.order(models.StatusDelivered, "completed")
	payment := f.paid(t, order)
	filed := f.filed(t, order)

	result, err := f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: models.ReturnRefunded})
	require.NoError(t, err)

	assert.True(t, result.PaymentRefunded)
	require.NotNil(t, result.Payment)
	assert.Equal(t, models.PaymentRefunded, result.Payment.Status)
	assert.EqualValues(t, 60000, result.Return.RefundAmount)

	require.Len(t, f.gateway.cancels, 1)
	assert.Equal(t, payment.PaymentKey, f.gateway.cancels[0].PaymentKey)
	assert.Zero(t, f.gateway.cancels[0].Amount)

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, stored.Status)
	assert.Equal(t, string(models.PaymentRefunded), stored.PaymentStatus)
	assert.Equal(t, []uuid.UUID{order.ID}, f.mailer.refunds)

	// Saving the same decision again does not charge back twice.
	again, err := f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: models.ReturnRefunded})
	require.NoError(t, err)
	assert.False(t, again.PaymentRefunded)
	assert.Len(t, f.gateway.cancels, 1)
	assert.Len(t, f.mailer.refunds, 1)
}

func TestUpdateReturn_PartialRefund(t *testing.T) {
	t.Parallel()

	f := newReturnFixture(t)
	order := f.order(models.StatusDelivered, "completed")
	f.paid(t, order)
	filed := f.filed(t, order)

	amount := int64(30000)
	result, err := f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: models.ReturnRefunded, RefundAmount: &amount})
	require.NoError(t, err)

	require.Len(t, f.gateway.cancels, 1)
	assert.EqualValues(t, 30000, f.gateway.cancels[0].Amount)
	assert.EqualValues(t, 30000, result.Return.RefundAmount)

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, stored.Status)
}

func TestUpdateReturn_RefundWithoutPaymentLeavesReturn(t *testing.T) {
	t.Parallel()

	f := newReturnFixture(t)
	order := f.order(models.StatusDelivered, "")
	filed := f.filed(t, order)

	_, err := f.service.Update(context.Background(), UpdateReturnInput{ReturnID: filed.ID, Status: models.ReturnRefunded})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	stored, err := f.returns.GetByID(context.Background(), filed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnRequested, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.Empty(t, f.gateway.cancels)
	assert.Empty(t, f.mailer.refunds)
}
