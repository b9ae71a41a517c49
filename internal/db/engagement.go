package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/models"
)

type WishlistStore struct {
	pool *pgxpool.Pool
}

func NewWishlistStore(pool *pgxpool.Pool) *WishlistStore {
	return &WishlistStore{pool: pool}
}

// Add inserts a wishlist entry. An existing (user, product) pair yields ErrDuplicate.
func (s *WishlistStore) Add(ctx context.Context, item *models.WishlistItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	var createdAt pgtype.Timestamptz
	err := s.pool.QueryRow(ctx, `
		INSERT INTO wishlist (id, user_id, product_id) VALUES ($1, $2, $3)
		RETURNING created_at`, item.ID, item.UserID, item.ProductID).Scan(&createdAt)
	if err != nil {
		return translate(err)
	}
	item.CreatedAt = timeOrNow(createdAt)
	return nil
}

func (s *WishlistStore) ListByUser(ctx context.Context, userID string) ([]*models.WishlistItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, product_id, created_at FROM wishlist
		WHERE user_id = $1
		ORDER BY created_at DESC NULLS LAST`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.WishlistItem{}
	for rows.Next() {
		var (
			item      models.WishlistItem
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &createdAt); err != nil {
			return nil, err
		}
		item.CreatedAt = timeOrNow(createdAt)
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *WishlistStore) Remove(ctx context.Context, userID string, productID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

const chatSessionColumns = `id, user_id, product_id, title, status, last_message_at, created_at, updated_at`

type ChatStore struct {
	pool *pgxpool.Pool
}

func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func (s *ChatStore) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, user_id, product_id, title, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+chatSessionColumns,
		session.ID, session.UserID, session.ProductID, session.Title, string(session.Status))
	created, err := scanChatSession(row)
	if err != nil {
		return translate(err)
	}
	*session = *created
	return nil
}

func (s *ChatStore) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	session, err := scanChatSession(s.pool.QueryRow(ctx, `SELECT `+chatSessionColumns+` FROM chat_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return session, nil
}

// ListSessions returns a user's sessions, or every session when userID is empty.
func (s *ChatStore) ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error) {
	query := `SELECT ` + chatSessionColumns + ` FROM chat_sessions`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY COALESCE(last_message_at, created_at) DESC NULLS LAST`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*models.ChatSession{}
	for rows.Next() {
		session, err := scanChatSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *ChatStore) UpdateSession(ctx context.Context, id uuid.UUID, title *string, status *models.ChatStatus) (*models.ChatSession, error) {
	var statusValue *string
	if status != nil {
		value := string(*status)
		statusValue = &value
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE chat_sessions SET title = COALESCE($2, title), status = COALESCE($3, status), updated_at = NOW()
		WHERE id = $1
		RETURNING `+chatSessionColumns, id, title, statusValue)
	session, err := scanChatSession(row)
	if err != nil {
		return nil, translate(err)
	}
	return session, nil
}

func (s *ChatStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

// AppendMessage stores a message and bumps the session's last_message_at.
func (s *ChatStore) AppendMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var createdAt pgtype.Timestamptz
	if err := tx.QueryRow(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content) VALUES ($1, $2, $3, $4)
		RETURNING created_at`, message.ID, message.SessionID, string(message.Role), message.Content).Scan(&createdAt); err != nil {
		return translate(err)
	}
	message.CreatedAt = timeOrNow(createdAt)

	tag, err := tx.Exec(ctx, `UPDATE chat_sessions SET last_message_at = $2, updated_at = NOW() WHERE id = $1`,
		message.SessionID, message.CreatedAt)
	if err != nil {
		return err
	}
	if err := rowsAffectedOrNotFound(tag); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *ChatStore) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC NULLS LAST
			LIMIT $2
		) recent ORDER BY created_at ASC NULLS FIRST`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var (
			message   models.Message
			role      string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&message.ID, &message.SessionID, &role, &message.Content, &createdAt); err != nil {
			return nil, err
		}
		message.Role = models.MessageRole(role)
		message.CreatedAt = timeOrNow(createdAt)
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}

func scanChatSession(row pgx.Row) (*models.ChatSession, error) {
	var (
		session       models.ChatSession
		productID     pgtype.UUID
		status        string
		lastMessageAt pgtype.Timestamptz
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	if err := row.Scan(
		&session.ID, &session.UserID, &productID, &session.Title, &status,
		&lastMessageAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if productID.Valid {
		id := uuid.UUID(productID.Bytes)
		session.ProductID = &id
	}
	session.Status = models.ChatStatus(status)
	session.LastMessageAt = timePtr(lastMessageAt)
	session.CreatedAt = timeOrNow(createdAt)
	session.UpdatedAt = timeOrNow(updatedAt)
	return &session, nil
}

type PushSubscriptionStore struct {
	pool *pgxpool.Pool
}

func NewPushSubscriptionStore(pool *pgxpool.Pool) *PushSubscriptionStore {
	return &PushSubscriptionStore{pool: pool}
}

// Save registers an endpoint. Re-subscribing the same endpoint moves it to the new user and keys.
func (s *PushSubscriptionStore) Save(ctx context.Context, sub *models.PushSubscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	var createdAt pgtype.Timestamptz
	err := s.pool.QueryRow(ctx, `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
		RETURNING id, created_at`,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256DH, sub.Auth).Scan(&sub.ID, &createdAt)
	if err != nil {
		return translate(err)
	}
	sub.CreatedAt = timeOrNow(createdAt)
	return nil
}

func (s *PushSubscriptionStore) ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*models.PushSubscription{}
	for rows.Next() {
		var (
			sub       models.PushSubscription
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256DH, &sub.Auth, &createdAt); err != nil {
			return nil, err
		}
		sub.CreatedAt = timeOrNow(createdAt)
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

func (s *PushSubscriptionStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}
