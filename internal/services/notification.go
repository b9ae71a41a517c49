package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onceloved/storefront/internal/crypto"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/observability"
	"github.com/onceloved/storefront/internal/push"
)

type pushSubscriptionStore interface {
	Save(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type NotificationService struct {
	store  pushSubscriptionStore
	sealer crypto.Sealer
	sender push.Sender
	logger *slog.Logger
}

func NewNotificationService(store pushSubscriptionStore, sealer crypto.Sealer, sender push.Sender, logger *slog.Logger) *NotificationService {
	return &NotificationService{store: store, sealer: sealer, sender: sender, logger: logger}
}

func (s *NotificationService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// SubscribeInput mirrors the browser's PushSubscription.toJSON().
type SubscribeInput struct {
	UserID   string `json:"userId"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// PublicKey is the VAPID application server key browsers subscribe with.
func (s *NotificationService) PublicKey() (string, error) {
	if s.sender == nil {
		return "", unavailable("push notifications")
	}
	return s.sender.PublicKey(), nil
}

func (s *NotificationService) Subscribe(ctx context.Context, input SubscribeInput) (*models.PushSubscription, error) {
	if s.sender == nil {
		return nil, unavailable("push notifications")
	}
	input.UserID = strings.TrimSpace(input.UserID)
	input.Endpoint = strings.TrimSpace(input.Endpoint)
	if input.UserID == "" {
		return nil, invalid("userId is required")
	}
	if !strings.HasPrefix(input.Endpoint, "https://") {
		return nil, invalid("endpoint must be an https URL")
	}
	if strings.TrimSpace(input.Keys.P256DH) == "" || strings.TrimSpace(input.Keys.Auth) == "" {
		return nil, invalid("keys.p256dh and keys.auth are required")
	}

	p256dh, err := s.sealer.Seal(input.Keys.P256DH, input.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to seal subscription key: %w", err)
	}
	auth, err := s.sealer.Seal(input.Keys.Auth, input.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to seal subscription secret: %w", err)
	}

	sub := &models.PushSubscription{UserID: input.UserID, Endpoint: input.Endpoint, P256DH: p256dh, Auth: auth}
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, storeError(err, "push subscription", "save push subscription")
	}
	return sub, nil
}

func (s *NotificationService) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return invalid("endpoint is required")
	}
	return storeError(s.store.DeleteByEndpoint(ctx, endpoint), "push subscription", "delete push subscription")
}

// SendToUser pushes n to every device the user subscribed and returns how
// many accepted it. Endpoints the push service reports gone are removed.
func (s *NotificationService) SendToUser(ctx context.Context, userID string, n Notification) (int, error) {
	if s.sender == nil {
		return 0, unavailable("push notifications")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, invalid("userId is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return 0, invalid("title is required")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("failed to encode notification: %w", err)
	}
	if len(payload) > push.MaxPayload {
		return 0, invalid("notification is too large")
	}

	subs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, storeError(err, "push subscription", "list push subscriptions")
	}

	logger := s.loggerFromContext(ctx)
	delivered := 0
	for _, sub := range subs {
		target, err := s.open(sub)
		if err != nil {
			logger.Warn("failed to open push subscription keys", "error", err, "subscription_id", sub.ID)
			continue
		}

		err = s.sender.Send(ctx, target, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, push.ErrSubscriptionGone):
			if delErr := s.store.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
				logger.Warn("failed to remove expired push subscription", "error", delErr, "subscription_id", sub.ID)
			}
		default:
			logger.Warn("failed to deliver push notification", "error", err, "subscription_id", sub.ID)
		}
	}
	observability.Count(ctx, "notification.sent")
	return delivered, nil
}

func (s *NotificationService) open(sub *models.PushSubscription) (push.Subscription, error) {
	p256dh, err := s.sealer.Open(sub.P256DH, sub.Endpoint)
	if err != nil {
		return push.Subscription{}, err
	}
	auth, err := s.sealer.Open(sub.Auth, sub.Endpoint)
	if err != nil {
		return push.Subscription{}, err
	}
	return push.Subscription{Endpoint: sub.Endpoint, P256DH: p256dh, Auth: auth}, nil
}

// OrderStatusChanged tells the customer their order moved.
func (s *NotificationService) OrderStatusChanged(ctx context.Context, order *models.Order) error {
	if s.sender == nil {
		return nil
	}
	n := Notification{URL: "/orders/" + order.ID.String()}
	switch order.Status {
	case models.StatusShipped:
		n.Title = "상품이 발송되었습니다"
	case models.StatusDelivered:
		n.Title = "배송이 완료되었습니다"
	default:
		return nil
	}
	n.Body = "주문번호 " + order.OrderNumber

	_, err := s.SendToUser(ctx, order.CustomerID, n)
	return err
}
