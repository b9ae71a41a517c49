package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/models"
)

const returnColumns = `id, order_id, customer_id, items, reason, status, notes, refund_amount,
	requested_at, processed_at, completed_at, updated_at`

type ReturnStore struct {
	pool *pgxpool.Pool
}

func NewReturnStore(pool *pgxpool.Pool) *ReturnStore {
	return &ReturnStore{pool: pool}
}

// Create inserts a return request. The (order_id, customer_id) unique index turns a
// racing duplicate into ErrDuplicate.
func (s *ReturnStore) Create(ctx context.Context, request *models.ReturnRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	items := request.Items
	if items == nil {
		items = []models.ReturnItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO returns (id, order_id, customer_id, items, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+returnColumns,
		request.ID, request.OrderID, request.CustomerID, itemsJSON, request.Reason, string(request.Status))
	created, err := scanReturn(row)
	if err != nil {
		return translate(err)
	}
	*request = *created
	return nil
}

func (s *ReturnStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := scanReturn(s.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return request, nil
}

func (s *ReturnStore) Exists(ctx context.Context, orderID uuid.UUID, customerID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM returns WHERE order_id = $1 AND customer_id = $2)`,
		orderID, customerID).Scan(&exists)
	return exists, err
}

func (s *ReturnStore) List(ctx context.Context, filter models.ReturnFilter) ([]*models.ReturnRequest, error) {
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
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + returnColumns + ` FROM returns`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY requested_at DESC NULLS LAST"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*models.ReturnRequest{}
	for rows.Next() {
		request, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (s *ReturnStore) Update(ctx context.Context, id uuid.UUID, update models.ReturnUpdate) (*models.ReturnRequest, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE returns
		SET status = $2,
		    notes = COALESCE($3, notes),
		    refund_amount = COALESCE($4, refund_amount),
		    processed_at = COALESCE($5, processed_at),
		    completed_at = COALESCE($6, completed_at),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+returnColumns,
		id, string(update.Status), update.Notes, update.RefundAmount, update.ProcessedAt, update.CompletedAt)
	request, err := scanReturn(row)
	if err != nil {
		return nil, translate(err)
	}
	return request, nil
}

func scanReturn(row pgx.Row) (*models.ReturnRequest, error) {
	var (
		request     models.ReturnRequest
		status      string
		itemsJSON   []byte
		requestedAt pgtype.Timestamptz
		processedAt pgtype.Timestamptz
		completedAt pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&request.ID, &request.OrderID, &request.CustomerID, &itemsJSON, &request.Reason, &status,
		&request.Notes, &request.RefundAmount, &requestedAt, &processedAt, &completedAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	request.Status = models.ReturnStatus(status)
	request.Items = []models.ReturnItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &request.Items); err != nil {
			return nil, fmt.Errorf("failed to decode return items: %w", err)
		}
	}
	request.RequestedAt = timeOrNow(requestedAt)
	request.ProcessedAt = timePtr(processedAt)
	request.CompletedAt = timePtr(completedAt)
	request.UpdatedAt = timeOrNow(updatedAt)
	return &request, nil
}
