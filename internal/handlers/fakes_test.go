package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onceloved/storefront/internal/config"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/media"
	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

// Fakes embed the interface they stand in for; calling a method a test did
// not expect panics on the nil embedded value.

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeCatalog struct {
	Catalog
	products   map[uuid.UUID]*models.Product
	created    *models.Product
	lastFilter models.ProductFilter
	deleted    []uuid.UUID
}

func (f *fakeCatalog) List(_ context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.lastFilter = filter
	out := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, &services.ValidationError{Message: "product name is required"}
	}
	p.ID = uuid.New()
	f.created = p
	return p, nil
}

func (f *fakeCatalog) DeleteMany(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.deleted = ids
	return int64(len(ids)), nil
}

type fakeOrders struct {
	Orders
	orders         map[uuid.UUID]*models.Order
	placed         *services.PlaceOrderInput
	idempotencyKey string
	replayed       bool
	lastFilter     models.OrderFilter
	patched        *models.OrderPatch
	statusUpdate   models.OrderStatus
	cancelled      []uuid.UUID
}

func (f *fakeOrders) PlaceOrder(_ context.Context, input services.PlaceOrderInput, key string) (*services.PlaceOrderResult, error) {
	f.placed = &input
	f.idempotencyKey = key
	order := &models.Order{ID: uuid.New(), CustomerID: input.CustomerID, Status: models.StatusPending}
	return &services.PlaceOrderResult{Order: order, Replayed: f.replayed}, nil
}

func (f *fakeOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrders) List(_ context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	f.lastFilter = filter
	return []*models.Order{}, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id uuid.UUID, next models.OrderStatus, _ *string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	f.statusUpdate = next
	order.Status = next
	return order, nil
}

func (f *fakeOrders) Patch(_ context.Context, id uuid.UUID, patch models.OrderPatch) (*models.Order, error) {
	f.patched = &patch
	return f.orders[id], nil
}

func (f *fakeOrders) CancelPending(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: order is already paid", services.ErrConflict)
	}
	f.cancelled = append(f.cancelled, id)
	order.Status = models.StatusCancelled
	return order, nil
}

type fakePayments struct {
	Payments
	confirmErr error
	lastFilter models.PaymentFilter
}

func (f *fakePayments) Confirm(_ context.Context, input services.ConfirmPaymentInput) (*services.ConfirmPaymentResult, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &services.ConfirmPaymentResult{
		Payment: &models.Payment{PaymentKey: input.PaymentKey, Amount: input.Amount, Status: models.PaymentCompleted},
	}, nil
}

func (f *fakePayments) List(_ context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	f.lastFilter = filter
	return []*models.Payment{}, nil
}

type fakeReturns struct {
	Returns
	filed   *services.FileReturnInput
	fileErr error
	updated *services.UpdateReturnInput
}

func (f *fakeReturns) Update(_ context.Context, input services.UpdateReturnInput) (*services.UpdateReturnResult, error) {
	f.updated = &input
	return &services.UpdateReturnResult{
		Return:          &models.ReturnRequest{ID: input.ReturnID, Status: input.Status},
		PaymentRefunded: input.Status == models.ReturnRefunded,
	}, nil
}

func (f *fakeReturns) FileReturn(_ context.Context, input services.FileReturnInput) (*services.FileReturnResult, error) {
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	f.filed = &input
	return &services.FileReturnResult{
		Return:             &models.ReturnRequest{ID: uuid.New(), OrderID: input.OrderID, CustomerID: input.CustomerID, Status: models.ReturnRequested},
		OrderStatusUpdated: true,
	}, nil
}

type fakeWishlist struct {
	Wishlist
	items map[string]bool
}

func (f *fakeWishlist) Add(_ context.Context, userID string, productID uuid.UUID) (*models.WishlistItem, error) {
	key := userID + "/" + productID.String()
	if f.items[key] {
		return nil, errors.Join(services.ErrConflict, errors.New("product is already in the wishlist"))
	}
	f.items[key] = true
	return &models.WishlistItem{ID: uuid.New(), UserID: userID, ProductID: productID}, nil
}

type fakeAddresses struct {
	Addresses
	addresses map[uuid.UUID]*models.Address
	deleted   []uuid.UUID
}

func (f *fakeAddresses) Get(_ context.Context, id uuid.UUID) (*models.Address, error) {
	a, ok := f.addresses[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return a, nil
}

func (f *fakeAddresses) Save(_ context.Context, a *models.Address) (*models.Address, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.addresses[a.ID] = a
	return a, nil
}

func (f *fakeAddresses) Delete(_ context.Context, id uuid.UUID, _ string) error {
	f.deleted = append(f.deleted, id)
	delete(f.addresses, id)
	return nil
}

type fakeUsers struct {
	Users
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return u, nil
}

type fakeChat struct {
	Chat
	sessions map[uuid.UUID]*models.ChatSession
	appended []models.MessageRole
	asked    *services.AskInput
}

func (f *fakeChat) GetSession(_ context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return s, nil
}

func (f *fakeChat) AppendMessage(_ context.Context, sessionID uuid.UUID, role models.MessageRole, content string) (*models.Message, error) {
	f.appended = append(f.appended, role)
	return &models.Message{ID: uuid.New(), SessionID: sessionID, Role: role, Content: content}, nil
}

func (f *fakeChat) Ask(_ context.Context, input services.AskInput) (*services.AskResult, error) {
	f.asked = &input
	return &services.AskResult{Reply: "안녕하세요", SessionID: input.SessionID}, nil
}

type fakeNotifications struct {
	Notifications
	subscribed *services.SubscribeInput
}

func (f *fakeNotifications) Subscribe(_ context.Context, input services.SubscribeInput) (*models.PushSubscription, error) {
	f.subscribed = &input
	return &models.PushSubscription{ID: uuid.New(), UserID: input.UserID, Endpoint: input.Endpoint}, nil
}

type fakeAuth struct {
	state string
	user  *models.User
	err   error
	codes []string
}

func (f *fakeAuth) StartGoogleLogin() (services.StartGoogleLoginResult, error) {
	return services.StartGoogleLoginResult{
		State:            f.state,
		AuthorizationURL: "https://accounts.google.com/o/oauth2/auth?state=" + f.state,
	}, nil
}

func (f *fakeAuth) CompleteGoogleOAuth(_ context.Context, code string) (*models.User, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(req media.SignRequest) (*media.Signature, error) {
	folder := req.Folder
	if folder == "" {
		folder = media.DefaultFolder
	}
	return &media.Signature{Signature: "sig", Timestamp: 1700000000, APIKey: "key", CloudName: "cloud", Folder: folder}, nil
}

// testDeps returns a complete dependency set backed by empty fakes.
func testDeps() Dependencies {
	return Dependencies{
		Config:         &config.Config{BaseURL: "https://shop.example.com"},
		DB:             fakePinger{},
		SessionManager: session.NewManager(session.NewMemoryStore(), false),
		Catalog:        &fakeCatalog{products: map[uuid.UUID]*models.Product{}},
		Orders:         &fakeOrders{orders: map[uuid.UUID]*models.Order{}},
		Payments:       &fakePayments{},
		Returns:        &fakeReturns{},
		Shipping:       struct{ Shipping }{},
		Wishlist:       &fakeWishlist{items: map[string]bool{}},
		Addresses:      &fakeAddresses{addresses: map[uuid.UUID]*models.Address{}},
		Users:          &fakeUsers{users: map[uuid.UUID]*models.User{}},
		Chat:           &fakeChat{sessions: map[uuid.UUID]*models.ChatSession{}},
		Notifications:  &fakeNotifications{},
		Logger:         logging.Discard(),
	}
}

func newTestHandlers(t *testing.T, deps Dependencies) *Handlers {
	t.Helper()
	h, err := New(deps)
	if err != nil {
		t.Fatalf("failed to build handlers: %v", err)
	}
	return h
}

func customer() *session.Data {
	return &session.Data{UserID: uuid.New(), Email: "buyer@example.com", Role: models.RoleCustomer}
}

func admin() *session.Data {
	return &session.Data{UserID: uuid.New(), Email: "owner@example.com", Role: models.RoleAdmin}
}

// newRequest builds a request carrying sess (may be nil) and path vars.
func newRequest(method, target, body string, sess *session.Data, vars map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req = req.WithContext(session.WithData(req.Context(), sess))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
