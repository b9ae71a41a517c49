package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/ai"
	"github.com/onceloved/storefront/internal/cache"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/observability"
)

const (
	maxChatMessageLength = 2000
	chatHistoryLimit     = 20
	chatTitleLength      = 40
	productContextTTL    = time.Hour
)

type chatStore interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error)
	UpdateSession(ctx context.Context, id uuid.UUID, title *string, status *models.ChatStatus) (*models.ChatSession, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	AppendMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error)
}

type productReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ChatService struct {
	store     chatStore
	products  productReader
	assistant ai.Assistant
	cache     cache.Provider
	logger    *slog.Logger
}

func NewChatService(store chatStore, products productReader, assistant ai.Assistant, contextCache cache.Provider, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:     store,
		products:  products,
		assistant: assistant,
		cache:     contextCache,
		logger:    logger,
	}
}

func (s *ChatService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CreateChatSessionInput struct {
	UserID    string     `json:"userId"`
	ProductID *uuid.UUID `json:"productId"`
	Title     string     `json:"title"`
}

func (s *ChatService) CreateSession(ctx context.Context, input CreateChatSessionInput) (*models.ChatSession, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return nil, invalid("userId is required")
	}

	session := &models.ChatSession{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Title:     strings.TrimSpace(input.Title),
		Status:    models.ChatOpen,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, storeError(err, "chat session", "create chat session")
	}
	return session, nil
}

func (s *ChatService) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, storeError(err, "chat session", "get chat session")
	}
	return session, nil
}

// ListSessions lists one user's sessions, or all of them for an empty userID.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error) {
	sessions, err := s.store.ListSessions(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, storeError(err, "chat session", "list chat sessions")
	}
	return sessions, nil
}

type UpdateChatSessionInput struct {
	Title  *string            `json:"title"`
	Status *models.ChatStatus `json:"status"`
}

func (s *ChatService) UpdateSession(ctx context.Context, id uuid.UUID, input UpdateChatSessionInput) (*models.ChatSession, error) {
	if input.Status != nil && *input.Status != models.ChatOpen && *input.Status != models.ChatClosed {
		return nil, invalid("unknown chat status: %s", *input.Status)
	}
	if input.Title == nil && input.Status == nil {
		return nil, invalid("nothing to update")
	}
	session, err := s.store.UpdateSession(ctx, id, input.Title, input.Status)
	if err != nil {
		return nil, storeError(err, "chat session", "update chat session")
	}
	return session, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return storeError(s.store.DeleteSession(ctx, id), "chat session", "delete chat session")
}

func (s *ChatService) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, storeError(err, "chat message", "list chat messages")
	}
	return messages, nil
}

func (s *ChatService) AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string) (*models.Message, error) {
	if !role.Valid() {
		return nil, invalid("unknown message role: %s", role)
	}
	content, err := chatContent(content)
	if err != nil {
		return nil, err
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.ChatClosed {
		return nil, invalid("chat session is closed")
	}

	message := &models.Message{SessionID: sessionID, Role: role, Content: content}
	if err := s.store.AppendMessage(ctx, message); err != nil {
		return nil, storeError(err, "chat session", "append chat message")
	}
	return message, nil
}

type AskInput struct {
	Message   string     `json:"message"`
	ProductID *uuid.UUID `json:"productId"`
	SessionID *uuid.UUID `json:"sessionId"`
}

type AskResult struct {
	Reply     string     `json:"reply"`
	SessionID *uuid.UUID `json:"sessionId,omitempty"`
}

// Ask answers a shopper's question. With a session, the earlier messages are
// sent along as history and both sides of the exchange are stored.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.chat.ask",
		sentry.WithOpName("service.chat"),
		sentry.WithDescription("AskAssistant"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if s.assistant == nil {
		return nil, unavailable("AI chat")
	}
	message, err := chatContent(input.Message)
	if err != nil {
		return nil, err
	}

	var (
		session *models.ChatSession
		history []ai.Turn
	)
	if input.SessionID != nil {
		session, err = s.GetSession(ctx, *input.SessionID)
		if err != nil {
			return nil, err
		}
		previous, err := s.store.ListMessages(ctx, session.ID, chatHistoryLimit)
		if err != nil {
			return nil, storeError(err, "chat message", "list chat messages")
		}
		for _, m := range previous {
			history = append(history, ai.Turn{Role: m.Role, Content: m.Content})
		}
	}

	productID := input.ProductID
	if productID == nil && session != nil {
		productID = session.ProductID
	}
	productContext, err := s.productContext(ctx, productID)
	if err != nil {
		return nil, err
	}

	reply, err := s.assistant.Reply(ctx, ai.Request{Message: message, ProductContext: productContext, History: history})
	if err != nil {
		observability.Count(ctx, "chat.reply_failed")
		s.loggerFromContext(ctx).Warn("assistant reply failed", "error", err)
		return nil, unavailable("AI chat")
	}
	source := "general"
	if productContext != "" {
		source = "product"
	}
	observability.Count(ctx, "chat.replied", attribute.String("context", source))

	result := &AskResult{Reply: reply}
	if session == nil {
		return result, nil
	}
	result.SessionID = &session.ID

	for _, m := range []*models.Message{
		{SessionID: session.ID, Role: models.MessageUser, Content: message},
		{SessionID: session.ID, Role: models.MessageAssistant, Content: reply},
	} {
		if err := s.store.AppendMessage(ctx, m); err != nil {
			s.loggerFromContext(ctx).Warn("failed to store chat message", "error", err, "session_id", session.ID, "role", m.Role)
			break
		}
	}
	if session.Title == "" {
		title := truncateRunes(message, chatTitleLength)
		if _, err := s.store.UpdateSession(ctx, session.ID, &title, nil); err != nil {
			s.loggerFromContext(ctx).Warn("failed to title chat session", "error", err, "session_id", session.ID)
		}
	}
	return result, nil
}

// productContext renders the product facts for the assistant, keyed by the
// product's last update so edits invalidate the cached text.
func (s *ChatService) productContext(ctx context.Context, productID *uuid.UUID) (string, error) {
	if productID == nil || s.products == nil {
		return "", nil
	}
	product, err := s.products.GetByID(ctx, *productID)
	if err != nil {
		return "", storeError(err, "product", "get product")
	}

	key := cache.ProductContextKey(product.ID.String(), product.UpdatedAt)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, cache.ErrNotFound):
			s.loggerFromContext(ctx).Warn("failed to read product context cache", "error", err)
		}
	}

	rendered := ai.ProductContext(product)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rendered, productContextTTL); err != nil {
			s.loggerFromContext(ctx).Warn("failed to cache product context", "error", err)
		}
	}
	return rendered, nil
}

func chatContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("message is required")
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return "", invalid("message must be at most %d characters", maxChatMessageLength)
	}
	return content, nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "…"
}
