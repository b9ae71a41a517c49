package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/media"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Catalog interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type Orders interface {
	PlaceOrder(ctx context.Context, input services.PlaceOrderInput, idempotencyKey string) (*services.PlaceOrderResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus, notes *string) (*models.Order, error)
	Patch(ctx context.Context, id uuid.UUID, patch models.OrderPatch) (*models.Order, error)
	CancelPending(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Payments interface {
	Confirm(ctx context.Context, input services.ConfirmPaymentInput) (*services.ConfirmPaymentResult, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	UpdateStatus(ctx context.Context, input services.UpdatePaymentInput) (*services.UpdatePaymentResult, error)
}

type Returns interface {
	FileReturn(ctx context.Context, input services.FileReturnInput) (*services.FileReturnResult, error)
	List(ctx context.Context, filter models.ReturnFilter) ([]*models.ReturnRequest, error)
	Update(ctx context.Context, input services.UpdateReturnInput) (*services.UpdateReturnResult, error)
}

type Shipping interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.ShippingInfo, error)
	Create(ctx context.Context, input services.CreateShippingInput) (*services.ShippingResult, error)
	Update(ctx context.Context, input services.UpdateShippingInput) (*services.ShippingResult, error)
}

type Wishlist interface {
	Add(ctx context.Context, userID string, productID uuid.UUID) (*models.WishlistItem, error)
	List(ctx context.Context, userID string) ([]*models.WishlistItem, error)
	Remove(ctx context.Context, userID string, productID uuid.UUID) error
}

type Addresses interface {
	List(ctx context.Context, userID string) ([]*models.Address, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Address, error)
	Save(ctx context.Context, address *models.Address) (*models.Address, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id uuid.UUID, input services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Chat interface {
	CreateSession(ctx context.Context, input services.CreateChatSessionInput) (*models.ChatSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error)
	UpdateSession(ctx context.Context, id uuid.UUID, input services.UpdateChatSessionInput) (*models.ChatSession, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string) (*models.Message, error)
	Ask(ctx context.Context, input services.AskInput) (*services.AskResult, error)
}

type Notifications interface {
	PublicKey() (string, error)
	Subscribe(ctx context.Context, input services.SubscribeInput) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, endpoint string) error
	SendToUser(ctx context.Context, userID string, n services.Notification) (int, error)
}

type Auth interface {
	StartGoogleLogin() (services.StartGoogleLoginResult, error)
	CompleteGoogleOAuth(ctx context.Context, code string) (*models.User, error)
}

type UploadSigner interface {
	Sign(req media.SignRequest) (*media.Signature, error)
}
