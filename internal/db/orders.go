package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/models"
)

const orderColumns = `id, order_number, customer_id, items, status, total_amount, shipping_fee,
	final_amount, shipping_address, billing_address, notes, payment_key, payment_status,
	created_at, updated_at`

const (
	orderNumberConstraint = "orders_order_number_key"
	orderNumberAttempts   = 3
)

// ErrStockConflict means a conditional stock decrement matched no row.
var ErrStockConflict = errors.New("stock changed during order placement")

// StockChange is one product's stock write. Options, when set, replaces the
// stored options array. Quantity is subtracted from the plain stock on placement
// (only if enough remains) and added back on cancellation.
type StockChange struct {
	ProductID uuid.UUID
	Quantity  int
	Options   []models.ProductOption
}

// PlanFunc builds the order and its stock changes from products locked for the
// duration of the transaction.
type PlanFunc func(products map[uuid.UUID]*models.Product) (*models.Order, []StockChange, error)

// RestockFunc returns the stock a cancelled order hands back, computed from
// products locked for the duration of the transaction. Products deleted since
// the order was placed are absent from products.
type RestockFunc func(order *models.Order, products map[uuid.UUID]*models.Product) []StockChange

type OrderStore struct {
	pool        *pgxpool.Pool
	now         func() time.Time
	orderNumber func(time.Time) string
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool, now: time.Now, orderNumber: NewOrderNumber}
}

// Place locks every referenced product, lets plan decide the order, applies the
// stock changes and inserts the order in one transaction. Any error rolls back
// every stock write of the order.
func (s *OrderStore) Place(ctx context.Context, productIDs []uuid.UUID, plan PlanFunc) (*models.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin order transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	products, err := lockProducts(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	order, changes, err := plan(products)
	if err != nil {
		return nil, err
	}

	for _, change := range changes {
		if err := applyStockChange(ctx, tx, change); err != nil {
			return nil, err
		}
	}

	if err := s.insertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

// lockProducts selects the given products FOR UPDATE in id order.
func lockProducts(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	rows, err := tx.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	locked, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	products := make(map[uuid.UUID]*models.Product, len(locked))
	for _, product := range locked {
		products[product.ID] = product
	}
	return products, nil
}

func applyStockChange(ctx context.Context, tx pgx.Tx, change StockChange) error {
	if change.Options != nil {
		optionsJSON, err := json.Marshal(change.Options)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET options = $2, updated_at = NOW() WHERE id = $1`, change.ProductID, optionsJSON); err != nil {
			return fmt.Errorf("failed to update option stock: %w", err)
		}
	}

	if change.Quantity > 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2`, change.ProductID, change.Quantity)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %s", ErrStockConflict, change.ProductID)
		}
	}
	return nil
}

// insertOrder assigns the id and order number. A colliding order number is
// regenerated inside a savepoint so the surrounding transaction survives.
func (s *OrderStore) insertOrder(ctx context.Context, tx pgx.Tx, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	shippingJSON, err := marshalNullable(order.ShippingAddress)
	if err != nil {
		return err
	}
	billingJSON, err := marshalNullable(order.BillingAddress)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.orderNumber(s.now())

		savepoint, err := tx.Begin(ctx)
		if err != nil {
			return err
		}

		row := savepoint.QueryRow(ctx, `
			INSERT INTO orders (id, order_number, customer_id, items, status, total_amount,
				shipping_fee, final_amount, shipping_address, billing_address, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+orderColumns,
			order.ID, order.OrderNumber, order.CustomerID, itemsJSON, string(order.Status),
			order.TotalAmount, order.ShippingFee, order.FinalAmount, shippingJSON, billingJSON,
			order.Notes,
		)
		created, err := scanOrder(row)
		if err == nil {
			if err := savepoint.Commit(ctx); err != nil {
				return err
			}
			*order = *created
			return nil
		}

		_ = savepoint.Rollback(ctx)
		if isUniqueViolation(err, orderNumberConstraint) && attempt < orderNumberAttempts {
			continue
		}
		return fmt.Errorf("failed to insert order: %w", translate(err))
	}
}

// NewOrderNumber derives a human-readable order number from t plus four random digits.
func NewOrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", t.UTC().Format("20060102150405"), rand.IntN(10000))
}

func (s *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func (s *OrderStore) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC NULLS LAST"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// TransitionStatus moves the order to next only while its current status is one of from.
func (s *OrderStore) TransitionStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus, from []models.OrderStatus) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+orderColumns, id, string(next), statusStrings(from))
	return s.transitioned(ctx, id, row, from)
}

// Cancel moves the order to cancelled while its current status is one of from
// and, in the same transaction, adds the stock restock returns back to the
// locked product rows.
func (s *OrderStore) Cancel(ctx context.Context, id uuid.UUID, from []models.OrderStatus, restock RestockFunc) (*models.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cancel transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err)
	}
	if !slices.Contains(from, order.Status) {
		return nil, fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, strings.Join(statusStrings(from), "/"))
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if !slices.Contains(ids, item.ProductID) {
			ids = append(ids, item.ProductID)
		}
	}
	products, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	for _, change := range restock(order, products) {
		if err := applyRestock(ctx, tx, change); err != nil {
			return nil, err
		}
	}

	cancelled, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns, id, string(models.StatusCancelled)))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", translate(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order cancellation: %w", err)
	}
	return cancelled, nil
}

func applyRestock(ctx context.Context, tx pgx.Tx, change StockChange) error {
	if change.Options != nil {
		optionsJSON, err := json.Marshal(change.Options)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET options = $2, updated_at = NOW() WHERE id = $1`, change.ProductID, optionsJSON); err != nil {
			return fmt.Errorf("failed to restore option stock: %w", err)
		}
	}
	if change.Quantity > 0 {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, change.ProductID, change.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}
	return nil
}

// MarkPaymentCompleted stamps the payment on a pending order.
func (s *OrderStore) MarkPaymentCompleted(ctx context.Context, id uuid.UUID, paymentKey, paymentStatus string) (*models.Order, error) {
	from := []models.OrderStatus{models.StatusPending}
	row := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, payment_key = $3, payment_status = $4, updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
		RETURNING `+orderColumns,
		id, string(models.StatusPaymentCompleted), paymentKey, paymentStatus, statusStrings(from))
	return s.transitioned(ctx, id, row, from)
}

func (s *OrderStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1`, id, paymentStatus)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

func (s *OrderStore) transitioned(ctx context.Context, id uuid.UUID, row pgx.Row, from []models.OrderStatus) (*models.Order, error) {
	order, err := scanOrder(row)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, strings.Join(statusStrings(from), "/"))
}

// UpdateDetails writes the non-status fields of a patch.
func (s *OrderStore) UpdateDetails(ctx context.Context, id uuid.UUID, patch models.OrderPatch) (*models.Order, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.ShippingAddress != nil {
		addressJSON, err := json.Marshal(patch.ShippingAddress)
		if err != nil {
			return nil, err
		}
		set("shipping_address", addressJSON)
	}
	if patch.BillingAddress != nil {
		addressJSON, err := json.Marshal(patch.BillingAddress)
		if err != nil {
			return nil, err
		}
		set("billing_address", addressJSON)
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE orders SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), orderColumns)
	order, err := scanOrder(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func (s *OrderStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order        models.Order
		status       string
		itemsJSON    []byte
		shippingJSON []byte
		billingJSON  []byte
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &itemsJSON, &status,
		&order.TotalAmount, &order.ShippingFee, &order.FinalAmount, &shippingJSON, &billingJSON,
		&order.Notes, &order.PaymentKey, &order.PaymentStatus, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	order.Status = models.OrderStatus(status)
	order.Items = []models.OrderItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	if len(shippingJSON) > 0 {
		order.ShippingAddress = &models.PostalAddress{}
		if err := json.Unmarshal(shippingJSON, order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if len(billingJSON) > 0 {
		order.BillingAddress = &models.PostalAddress{}
		if err := json.Unmarshal(billingJSON, order.BillingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode billing address: %w", err)
		}
	}
	order.CreatedAt = timeOrNow(createdAt)
	order.UpdatedAt = timeOrNow(updatedAt)

	return &order, nil
}

func marshalNullable(value *models.PostalAddress) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func statusStrings(statuses []models.OrderStatus) []string {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	return values
}
