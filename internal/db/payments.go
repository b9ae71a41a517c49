package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/models"
)

const paymentColumns = `id, order_id, customer_id, payment_key, gateway, amount, method, status,
	refund_amount, cancel_reason, gateway_response, approved_at, created_at, updated_at`

type PaymentStore struct {
	pool *pgxpool.Pool
}

func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// Create inserts the payment. A payment key that is already recorded yields ErrDuplicate.
func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, customer_id, payment_key, gateway, amount, method,
			status, gateway_response, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+paymentColumns,
		payment.ID, payment.OrderID, payment.CustomerID, payment.PaymentKey, payment.Gateway,
		payment.Amount, payment.Method, string(payment.Status), nullableJSON(payment.GatewayResponse),
		payment.ApprovedAt,
	)
	created, err := scanPayment(row)
	if err != nil {
		return translate(err)
	}
	*payment = *created
	return nil
}

func (s *PaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := scanPayment(s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return payment, nil
}

func (s *PaymentStore) GetByPaymentKey(ctx context.Context, paymentKey string) (*models.Payment, error) {
	payment, err := scanPayment(s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_key = $1`, paymentKey))
	if err != nil {
		return nil, translate(err)
	}
	return payment, nil
}

func (s *PaymentStore) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.OrderID != nil {
		args = append(args, *filter.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC NULLS LAST"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// UpdateStatus records a cancellation or refund outcome on the payment.
func (s *PaymentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, refundAmount int64, cancelReason string, gatewayResponse []byte) (*models.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, refund_amount = $3, cancel_reason = $4,
		    gateway_response = COALESCE($5, gateway_response), updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id, string(status), refundAmount, cancelReason, nullableJSON(gatewayResponse))
	payment, err := scanPayment(row)
	if err != nil {
		return nil, translate(err)
	}
	return payment, nil
}

// CreateReconciliation remembers a captured charge whose local write failed.
func (s *PaymentStore) CreateReconciliation(ctx context.Context, rec *models.PaymentReconciliation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_reconciliations (id, order_id, payment_key, amount, reason, gateway_response)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.OrderID, rec.PaymentKey, rec.Amount, rec.Reason, nullableJSON(rec.GatewayResponse))
	return err
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		payment    models.Payment
		status     string
		response   []byte
		approvedAt pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	if err := row.Scan(
		&payment.ID, &payment.OrderID, &payment.CustomerID, &payment.PaymentKey, &payment.Gateway,
		&payment.Amount, &payment.Method, &status, &payment.RefundAmount, &payment.CancelReason,
		&response, &approvedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	payment.Status = models.PaymentStatus(status)
	if len(response) > 0 {
		payment.GatewayResponse = response
	}
	payment.ApprovedAt = timePtr(approvedAt)
	payment.CreatedAt = timeOrNow(createdAt)
	payment.UpdatedAt = timeOrNow(updatedAt)
	return &payment, nil
}

// nullableJSON keeps an empty payload as SQL NULL instead of an invalid JSON document.
func nullableJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
