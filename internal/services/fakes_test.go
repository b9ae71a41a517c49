package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/payments"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryOrders plays the product and order tables. Place applies stock changes
// only when the plan succeeds, like the transactional store.
type memoryOrders struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	orders   map[uuid.UUID]*models.Order
	seq      int

	markPaidErr error
}

func newMemoryOrders(products ...*models.Product) *memoryOrders {
	m := &memoryOrders{
		products: map[uuid.UUID]*models.Product{},
		orders:   map[uuid.UUID]*models.Order{},
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memoryOrders) product(id uuid.UUID) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.products[id]
}

func (m *memoryOrders) addOrder(order *models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	stored := *order
	m.orders[order.ID] = &stored
	return order
}

func (m *memoryOrders) Place(_ context.Context, productIDs []uuid.UUID, plan db.PlanFunc) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	locked := make(map[uuid.UUID]*models.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := m.products[id]; ok {
			copied := *p
			locked[id] = &copied
		}
	}

	order, changes, err := plan(locked)
	if err != nil {
		return nil, err
	}
	for _, change := range changes {
		p := m.products[change.ProductID]
		if change.Options != nil {
			p.Options = change.Options
		}
		p.Stock -= change.Quantity
	}

	m.seq++
	order.ID = uuid.New()
	order.OrderNumber = fmt.Sprintf("ORD-20260301100000-%04d", m.seq)
	stored := *order
	m.orders[order.ID] = &stored
	return order, nil
}

func (m *memoryOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) List(_ context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for _, order := range m.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		copied := *order
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryOrders) TransitionStatus(_ context.Context, id uuid.UUID, next models.OrderStatus, from []models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	allowed := false
	for _, status := range from {
		if order.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return nil, db.ErrInvalidStatusTransition
	}
	order.Status = next
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) Cancel(_ context.Context, id uuid.UUID, from []models.OrderStatus, restock db.RestockFunc) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !slices.Contains(from, order.Status) {
		return nil, db.ErrInvalidStatusTransition
	}

	locked := make(map[uuid.UUID]*models.Product, len(order.Items))
	for _, item := range order.Items {
		if p, ok := m.products[item.ProductID]; ok {
			copied := *p
			locked[item.ProductID] = &copied
		}
	}
	snapshot := *order
	for _, change := range restock(&snapshot, locked) {
		p := m.products[change.ProductID]
		if change.Options != nil {
			p.Options = change.Options
		}
		p.Stock += change.Quantity
	}

	order.Status = models.StatusCancelled
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) UpdateDetails(_ context.Context, id uuid.UUID, patch models.OrderPatch) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if patch.Notes != nil {
		order.Notes = *patch.Notes
	}
	if patch.ShippingAddress != nil {
		order.ShippingAddress = patch.ShippingAddress
	}
	if patch.BillingAddress != nil {
		order.BillingAddress = patch.BillingAddress
	}
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryOrders) MarkPaymentCompleted(_ context.Context, id uuid.UUID, paymentKey, paymentStatus string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markPaidErr != nil {
		return nil, m.markPaidErr
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if order.Status != models.StatusPending {
		return nil, db.ErrInvalidStatusTransition
	}
	order.Status = models.StatusPaymentCompleted
	order.PaymentKey = paymentKey
	order.PaymentStatus = paymentStatus
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) SetPaymentStatus(_ context.Context, id uuid.UUID, paymentStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return db.ErrNotFound
	}
	order.PaymentStatus = paymentStatus
	return nil
}

type memoryPayments struct {
	mu              sync.Mutex
	payments        map[uuid.UUID]*models.Payment
	reconciliations []*models.PaymentReconciliation
	createErr       error
}

func newMemoryPayments() *memoryPayments {
	return &memoryPayments{payments: map[uuid.UUID]*models.Payment{}}
}

func (m *memoryPayments) Create(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.payments {
		if existing.PaymentKey == payment.PaymentKey {
			return db.ErrDuplicate
		}
	}
	payment.ID = uuid.New()
	stored := *payment
	m.payments[payment.ID] = &stored
	return nil
}

func (m *memoryPayments) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func (m *memoryPayments) GetByPaymentKey(_ context.Context, paymentKey string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, payment := range m.payments {
		if payment.PaymentKey == paymentKey {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memoryPayments) List(_ context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Payment, 0, len(m.payments))
	for _, payment := range m.payments {
		if filter.OrderID != nil && payment.OrderID != *filter.OrderID {
			continue
		}
		if filter.CustomerID != "" && payment.CustomerID != filter.CustomerID {
			continue
		}
		copied := *payment
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryPayments) UpdateStatus(_ context.Context, id uuid.UUID, status models.PaymentStatus, refundAmount int64, cancelReason string, gatewayResponse []byte) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	payment.Status = status
	payment.RefundAmount = refundAmount
	payment.CancelReason = cancelReason
	payment.GatewayResponse = gatewayResponse
	copied := *payment
	return &copied, nil
}

func (m *memoryPayments) CreateReconciliation(_ context.Context, rec *models.PaymentReconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations = append(m.reconciliations, rec)
	return nil
}

func (m *memoryPayments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

type fakeGateway struct {
	confirmErr error
	confirms   []payments.ConfirmRequest
	cancels    []payments.CancelRequest
}

func (g *fakeGateway) Name() string { return "toss" }

func (g *fakeGateway) Confirm(_ context.Context, req payments.ConfirmRequest) (*payments.Result, error) {
	g.confirms = append(g.confirms, req)
	if g.confirmErr != nil {
		return nil, g.confirmErr
	}
	return &payments.Result{
		PaymentKey: req.PaymentKey,
		Status:     "DONE",
		Method:     "카드",
		Amount:     req.Amount,
		Raw:        []byte(`{"status":"DONE"}`),
	}, nil
}

func (g *fakeGateway) Cancel(_ context.Context, req payments.CancelRequest) (*payments.Result, error) {
	g.cancels = append(g.cancels, req)
	return &payments.Result{PaymentKey: req.PaymentKey, Status: "CANCELED", Raw: []byte(`{"status":"CANCELED"}`)}, nil
}

type memoryReturns struct {
	mu      sync.Mutex
	returns map[uuid.UUID]*models.ReturnRequest
}

func newMemoryReturns() *memoryReturns {
	return &memoryReturns{returns: map[uuid.UUID]*models.ReturnRequest{}}
}

func (m *memoryReturns) Create(_ context.Context, request *models.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.returns {
		if existing.OrderID == request.OrderID && existing.CustomerID == request.CustomerID {
			return db.ErrDuplicate
		}
	}
	request.ID = uuid.New()
	stored := *request
	m.returns[request.ID] = &stored
	return nil
}

func (m *memoryReturns) GetByID(_ context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.returns[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (m *memoryReturns) Exists(_ context.Context, orderID uuid.UUID, customerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.returns {
		if existing.OrderID == orderID && existing.CustomerID == customerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryReturns) List(_ context.Context, _ models.ReturnFilter) ([]*models.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ReturnRequest, 0, len(m.returns))
	for _, request := range m.returns {
		copied := *request
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryReturns) Update(_ context.Context, id uuid.UUID, update models.ReturnUpdate) (*models.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.returns[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	request.Status = update.Status
	if update.Notes != nil {
		request.Notes = *update.Notes
	}
	if update.RefundAmount != nil {
		request.RefundAmount = *update.RefundAmount
	}
	if update.ProcessedAt != nil {
		request.ProcessedAt = update.ProcessedAt
	}
	if update.CompletedAt != nil {
		request.CompletedAt = update.CompletedAt
	}
	copied := *request
	return &copied, nil
}

type recordingMailer struct {
	mu            sync.Mutex
	confirmations []uuid.UUID
	returns       []uuid.UUID
	refunds       []uuid.UUID
}

func (r *recordingMailer) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations = append(r.confirmations, order.ID)
	return nil
}

func (r *recordingMailer) SendReturnReceived(_ context.Context, order *models.Order, _ *models.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returns = append(r.returns, order.ID)
	return nil
}

func (r *recordingMailer) SendReturnRefunded(_ context.Context, order *models.Order, _ *models.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds = append(r.refunds, order.ID)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []models.OrderStatus
}

func (r *recordingNotifier) OrderStatusChanged(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, order.Status)
	return nil
}

var errStoreDown = errors.New("connection refused")
