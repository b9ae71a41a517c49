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

const (
	userColumns    = `id, email, name, avatar_url, provider, provider_id, role, last_login_at, created_at, updated_at`
	addressColumns = `id, user_id, label, recipient_name, phone, postal_code, address1, address2, is_default, created_at, updated_at`
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Upsert records a sign-in. New users get role; existing users keep theirs.
func (s *UserStore) Upsert(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, avatar_url, provider, provider_id, role, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (provider, provider_id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url,
		    last_login_at = NOW(), updated_at = NOW()
		RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.AvatarURL, user.Provider, user.ProviderID, string(user.Role))
	stored, err := scanUser(row)
	if err != nil {
		return translate(err)
	}
	*user = *stored
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UserStore) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, role *models.Role) (*models.User, error) {
	var roleValue *string
	if role != nil {
		value := string(*role)
		roleValue = &value
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE users SET name = COALESCE($2, name), role = COALESCE($3, role), updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, name, roleValue)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user        models.User
		role        string
		lastLoginAt pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.Provider, &user.ProviderID,
		&role, &lastLoginAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	user.LastLoginAt = timePtr(lastLoginAt)
	user.CreatedAt = timeOrNow(createdAt)
	user.UpdatedAt = timeOrNow(updatedAt)
	return &user, nil
}

type AddressStore struct {
	pool *pgxpool.Pool
}

func NewAddressStore(pool *pgxpool.Pool) *AddressStore {
	return &AddressStore{pool: pool}
}

func (s *AddressStore) ListByUser(ctx context.Context, userID string) ([]*models.Address, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+addressColumns+` FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC NULLS LAST`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := []*models.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, rows.Err()
}

func (s *AddressStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	address, err := scanAddress(s.pool.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return address, nil
}

// Save inserts or replaces an address. Marking it default clears the user's other
// defaults in the same transaction.
func (s *AddressStore) Save(ctx context.Context, address *models.Address) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if address.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE addresses SET is_default = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND is_default AND id <> $2`, address.UserID, address.ID); err != nil {
			return fmt.Errorf("failed to clear default address: %w", err)
		}
	}

	var row pgx.Row
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
		row = tx.QueryRow(ctx, `
			INSERT INTO addresses (id, user_id, label, recipient_name, phone, postal_code, address1, address2, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+addressColumns,
			address.ID, address.UserID, address.Label, address.RecipientName, address.Phone,
			address.PostalCode, address.Address1, address.Address2, address.IsDefault)
	} else {
		row = tx.QueryRow(ctx, `
			UPDATE addresses
			SET label = $3, recipient_name = $4, phone = $5, postal_code = $6, address1 = $7,
			    address2 = $8, is_default = $9, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+addressColumns,
			address.ID, address.UserID, address.Label, address.RecipientName, address.Phone,
			address.PostalCode, address.Address1, address.Address2, address.IsDefault)
	}

	saved, err := scanAddress(row)
	if err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	*address = *saved
	return nil
}

func (s *AddressStore) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	query := `DELETE FROM addresses WHERE id = $1`
	args := []any{id}
	if strings.TrimSpace(userID) != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

func scanAddress(row pgx.Row) (*models.Address, error) {
	var (
		address   models.Address
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&address.ID, &address.UserID, &address.Label, &address.RecipientName, &address.Phone,
		&address.PostalCode, &address.Address1, &address.Address2, &address.IsDefault,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	address.CreatedAt = timeOrNow(createdAt)
	address.UpdatedAt = timeOrNow(updatedAt)
	return &address, nil
}
