package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/models"
)

const shippingColumns = `id, order_id, carrier, tracking_number, status, shipped_at, delivered_at,
	created_at, updated_at`

type ShippingStore struct {
	pool *pgxpool.Pool
}

func NewShippingStore(pool *pgxpool.Pool) *ShippingStore {
	return &ShippingStore{pool: pool}
}

// Create inserts the tracking record of an order. One record per order.
func (s *ShippingStore) Create(ctx context.Context, info *models.ShippingInfo) error {
	if info.ID == uuid.Nil {
		info.ID = uuid.New()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO shipping (id, order_id, carrier, tracking_number, status, shipped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+shippingColumns,
		info.ID, info.OrderID, info.Carrier, info.TrackingNumber, string(info.Status), info.ShippedAt)
	created, err := scanShipping(row)
	if err != nil {
		return translate(err)
	}
	*info = *created
	return nil
}

func (s *ShippingStore) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.ShippingInfo, error) {
	info, err := scanShipping(s.pool.QueryRow(ctx, `SELECT `+shippingColumns+` FROM shipping WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, translate(err)
	}
	return info, nil
}

func (s *ShippingStore) Update(ctx context.Context, id uuid.UUID, update models.ShippingUpdate) (*models.ShippingInfo, error) {
	var status *string
	if update.Status != nil {
		value := string(*update.Status)
		status = &value
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE shipping
		SET carrier = COALESCE($2, carrier),
		    tracking_number = COALESCE($3, tracking_number),
		    status = COALESCE($4, status),
		    delivered_at = COALESCE($5, delivered_at),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+shippingColumns,
		id, update.Carrier, update.TrackingNumber, status, update.DeliveredAt)
	info, err := scanShipping(row)
	if err != nil {
		return nil, translate(err)
	}
	return info, nil
}

func scanShipping(row pgx.Row) (*models.ShippingInfo, error) {
	var (
		info        models.ShippingInfo
		status      string
		shippedAt   pgtype.Timestamptz
		deliveredAt pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&info.ID, &info.OrderID, &info.Carrier, &info.TrackingNumber, &status,
		&shippedAt, &deliveredAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	info.Status = models.ShippingStatus(status)
	info.ShippedAt = timePtr(shippedAt)
	info.DeliveredAt = timePtr(deliveredAt)
	info.CreatedAt = timeOrNow(createdAt)
	info.UpdatedAt = timeOrNow(updatedAt)
	return &info, nil
}
