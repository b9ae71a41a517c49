package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/cache"
	"github.com/onceloved/storefront/internal/catalog"
	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/observability"
)

const (
	idempotencyTTL        = 24 * time.Hour
	idempotencyInProgress = "in_progress"
)

type orderStore interface {
	Place(ctx context.Context, productIDs []uuid.UUID, plan db.PlanFunc) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus, from []models.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, from []models.OrderStatus, restock db.RestockFunc) (*models.Order, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, patch models.OrderPatch) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderNotifier is told about status changes a customer cares about.
type OrderNotifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order) error
}

type OrderService struct {
	store    orderStore
	pricer   *catalog.Pricer
	cache    cache.Provider
	notifier OrderNotifier
	logger   *slog.Logger
}

func NewOrderService(store orderStore, pricer *catalog.Pricer, idempotency cache.Provider, notifier OrderNotifier, logger *slog.Logger) *OrderService {
	if pricer == nil {
		pricer = catalog.NewPricer(catalog.DefaultFreeShippingThreshold, catalog.DefaultFlatShippingFee)
	}
	return &OrderService{
		store:    store,
		pricer:   pricer,
		cache:    idempotency,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type OrderLine struct {
	ProductID       uuid.UUID                        `json:"productId"`
	Quantity        int                              `json:"quantity"`
	Price           int64                            `json:"price"`
	Name            string                           `json:"name"`
	Image           string                           `json:"image"`
	SelectedOptions map[string]models.SelectedOption `json:"selectedOptions"`
}

type PlaceOrderInput struct {
	CustomerID      string                `json:"customerId"`
	Items           []OrderLine           `json:"items"`
	ShippingAddress *models.PostalAddress `json:"shippingAddress"`
	BillingAddress  *models.PostalAddress `json:"billingAddress"`
	Notes           string                `json:"notes"`
}

func (in PlaceOrderInput) validate() error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return invalid("customerId is required")
	}
	if len(in.Items) == 0 {
		return invalid("items are required")
	}
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return invalid("items[%d].productId is required", i)
		}
		if item.Quantity <= 0 {
			return invalid("items[%d].quantity must be positive", i)
		}
		if item.Price < 0 {
			return invalid("items[%d].price must be zero or positive", i)
		}
	}
	return nil
}

type PlaceOrderResult struct {
	Order    *models.Order
	Replayed bool
}

// PlaceOrder creates an order, replaying the stored result when idempotencyKey
// was already used successfully by the same customer.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput, idempotencyKey string) (*PlaceOrderResult, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" || s.cache == nil {
		order, err := s.place(ctx, input)
		if err != nil {
			return nil, err
		}
		return &PlaceOrderResult{Order: order}, nil
	}

	key := cache.IdempotencyKey(input.CustomerID, idempotencyKey)
	claimed, err := s.cache.SetIfAbsent(ctx, key, idempotencyInProgress, idempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !claimed {
		return s.replay(ctx, key)
	}

	order, err := s.place(ctx, input)
	if err != nil {
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.loggerFromContext(ctx).Warn("failed to release idempotency key", "error", delErr)
		}
		return nil, err
	}

	payload, err := json.Marshal(order)
	if err == nil {
		err = s.cache.Set(ctx, key, string(payload), idempotencyTTL)
	}
	if err != nil {
		s.loggerFromContext(ctx).Warn("failed to store idempotent order result", "error", err, "order_id", order.ID)
	}
	return &PlaceOrderResult{Order: order}, nil
}

func (s *OrderService) replay(ctx context.Context, key string) (*PlaceOrderResult, error) {
	stored, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, conflict("the previous request with this Idempotency-Key has expired, retry with a new key")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if stored == idempotencyInProgress {
		return nil, conflict("a request with this Idempotency-Key is still in progress")
	}

	var order models.Order
	if err := json.Unmarshal([]byte(stored), &order); err != nil {
		return nil, fmt.Errorf("failed to decode idempotent order result: %w", err)
	}
	observability.Count(ctx, "order.replayed")
	return &PlaceOrderResult{Order: &order, Replayed: true}, nil
}

func (s *OrderService) place(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.place",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("PlaceOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	recordFailure := func(reason string) {
		observability.Count(ctx, "order.failed", attribute.String("reason", reason))
	}

	if err := input.validate(); err != nil {
		recordFailure("invalid_input")
		return nil, err
	}

	order, err := s.store.Place(ctx, productIDs(input.Items), s.plan(input))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			recordFailure("product_not_found")
		case errors.Is(err, ErrInsufficientStock):
			recordFailure("insufficient_stock")
		case errors.Is(err, db.ErrStockConflict):
			recordFailure("stock_conflict")
			return nil, conflict("stock changed while placing the order, please retry")
		case errors.Is(err, ErrValidation):
			recordFailure("invalid_input")
		default:
			recordFailure("store_error")
			return nil, fmt.Errorf("failed to place order: %w", err)
		}
		return nil, err
	}

	observability.Count(ctx, "order.created")
	logger.Info("order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"customer_id", order.CustomerID,
		"final_amount", order.FinalAmount,
	)
	return order, nil
}

// plan runs inside the store transaction against locked product rows. Lines
// that hit the same product see each other's decrements.
func (s *OrderService) plan(input PlaceOrderInput) db.PlanFunc {
	return func(products map[uuid.UUID]*models.Product) (*models.Order, []db.StockChange, error) {
		for _, line := range input.Items {
			if _, ok := products[line.ProductID]; !ok {
				return nil, nil, notFound(fmt.Sprintf("product %s", line.ProductID))
			}
		}

		working := make(map[uuid.UUID]*models.Product, len(products))
		changes := make(map[uuid.UUID]*db.StockChange, len(products))
		var touched []uuid.UUID

		items := make([]models.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			product, ok := working[line.ProductID]
			if !ok {
				copied := *products[line.ProductID]
				product = &copied
				working[line.ProductID] = product
			}
			if !product.IsActive {
				return nil, nil, invalid("product %s is not available", product.Name)
			}

			change, ok := changes[product.ID]
			if !ok {
				change = &db.StockChange{ProductID: product.ID}
				changes[product.ID] = change
				touched = append(touched, product.ID)
			}

			options, tracked, err := catalog.ApplyOptionStock(product, line.SelectedOptions, line.Quantity)
			switch {
			case errors.Is(err, catalog.ErrUnknownOptionValue):
				return nil, nil, invalid("%v", err)
			case err != nil:
				return nil, nil, err
			case tracked:
				product.Options = options
				change.Options = options
			default:
				if err := catalog.CheckPlainStock(product, line.Quantity); err != nil {
					return nil, nil, err
				}
				product.Stock -= line.Quantity
				change.Quantity += line.Quantity
			}

			items = append(items, orderItem(product, line, s.pricer.UnitPrice(product, line.Price)))
		}

		totals := s.pricer.Totals(items)
		order := &models.Order{
			CustomerID:      strings.TrimSpace(input.CustomerID),
			Items:           items,
			Status:          models.StatusPending,
			TotalAmount:     totals.TotalAmount,
			ShippingFee:     totals.ShippingFee,
			FinalAmount:     totals.FinalAmount,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  input.BillingAddress,
			Notes:           strings.TrimSpace(input.Notes),
		}

		stockChanges := make([]db.StockChange, 0, len(touched))
		for _, id := range touched {
			stockChanges = append(stockChanges, *changes[id])
		}
		return order, stockChanges, nil
	}
}

func orderItem(product *models.Product, line OrderLine, price int64) models.OrderItem {
	item := models.OrderItem{
		ProductID:       product.ID,
		Name:            product.Name,
		Quantity:        line.Quantity,
		Price:           price,
		Image:           line.Image,
		SelectedOptions: line.SelectedOptions,
	}
	if len(product.Images) > 0 {
		item.Image = product.Images[0]
	}
	return item
}

func productIDs(lines []OrderLine) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "order", "get order")
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown order status: %s", filter.Status)
	}
	orders, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "order", "list orders")
	}
	return orders, nil
}

// UpdateStatus applies one transition of the order state machine. Cancelling
// hands the order's stock back in the same transaction. Setting the current
// status again only updates the notes.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus, notes *string) (*models.Order, error) {
	if !next.Valid() {
		return nil, invalid("unknown order status: %s", next)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "order", "get order")
	}

	order := current
	if current.Status != next {
		if !current.Status.CanTransitionTo(next) {
			return nil, invalidTransition(current.Status, next)
		}
		if next == models.StatusCancelled {
			order, err = s.store.Cancel(ctx, id, models.Predecessors(next), restock)
		} else {
			order, err = s.store.TransitionStatus(ctx, id, next, models.Predecessors(next))
		}
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			// Another writer moved the order first.
			return nil, invalidTransition(current.Status, next)
		}
		if err != nil {
			return nil, storeError(err, "order", "update order status")
		}

		observability.Count(ctx, "order.status_changed", attribute.String("status", string(next)))
		s.loggerFromContext(ctx).Info("order status changed", "order_id", id, "from", current.Status, "to", next)
		s.notify(ctx, order)
	}

	if notes != nil {
		order, err = s.store.UpdateDetails(ctx, id, models.OrderPatch{Notes: notes})
		if err != nil {
			return nil, storeError(err, "order", "update order notes")
		}
	}
	return order, nil
}

var errCancelPaidOrder = conflict("only unpaid orders can be cancelled; paid orders are cancelled by the shop with a refund")

// CancelPending cancels an order that has not been paid yet and restores its
// stock. The status check and the cancellation happen in one transaction.
func (s *OrderService) CancelPending(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.Cancel(ctx, id, []models.OrderStatus{models.StatusPending}, restock)
	if errors.Is(err, db.ErrInvalidStatusTransition) {
		return nil, errCancelPaidOrder
	}
	if err != nil {
		return nil, storeError(err, "order", "cancel order")
	}

	observability.Count(ctx, "order.status_changed", attribute.String("status", string(models.StatusCancelled)))
	s.loggerFromContext(ctx).Info("order cancelled by customer", "order_id", id)
	return order, nil
}

// Patch applies a status change (through the state machine) and then the detail fields.
func (s *OrderService) Patch(ctx context.Context, id uuid.UUID, patch models.OrderPatch) (*models.Order, error) {
	if patch.Status != nil {
		if _, err := s.UpdateStatus(ctx, id, *patch.Status, nil); err != nil {
			return nil, err
		}
	}

	order, err := s.store.UpdateDetails(ctx, id, models.OrderPatch{
		Notes:           patch.Notes,
		ShippingAddress: patch.ShippingAddress,
		BillingAddress:  patch.BillingAddress,
	})
	if err != nil {
		return nil, storeError(err, "order", "update order")
	}
	return order, nil
}

// restock mirrors plan: option values that track stock get their quantity
// back, everything else goes to the plain stock.
func restock(order *models.Order, products map[uuid.UUID]*models.Product) []db.StockChange {
	working := make(map[uuid.UUID]*models.Product, len(products))
	changes := make(map[uuid.UUID]*db.StockChange, len(products))
	var touched []uuid.UUID

	for _, item := range order.Items {
		product, ok := working[item.ProductID]
		if !ok {
			locked, exists := products[item.ProductID]
			if !exists {
				continue
			}
			copied := *locked
			product = &copied
			working[item.ProductID] = product
		}

		change, ok := changes[product.ID]
		if !ok {
			change = &db.StockChange{ProductID: product.ID}
			changes[product.ID] = change
			touched = append(touched, product.ID)
		}

		if options, tracked := catalog.RestoreOptionStock(product, item.SelectedOptions, item.Quantity); tracked {
			product.Options = options
			change.Options = options
			continue
		}
		product.Stock += item.Quantity
		change.Quantity += item.Quantity
	}

	stockChanges := make([]db.StockChange, 0, len(touched))
	for _, id := range touched {
		stockChanges = append(stockChanges, *changes[id])
	}
	return stockChanges
}

func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err, "order", "delete order")
	}
	s.loggerFromContext(ctx).Info("order deleted", "order_id", id)
	return nil
}

func (s *OrderService) notify(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	if order.Status != models.StatusShipped && order.Status != models.StatusDelivered {
		return
	}
	if err := s.notifier.OrderStatusChanged(ctx, order); err != nil {
		s.loggerFromContext(ctx).Warn("failed to notify customer", "error", err, "order_id", order.ID, "status", order.Status)
	}
}
