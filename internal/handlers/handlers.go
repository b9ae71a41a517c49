package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/onceloved/storefront/internal/config"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/session"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20 // 1 MB

// Handlers serves the storefront and back-office JSON API.
type Handlers struct {
	config         *config.Config
	db             Pinger
	sessionManager *session.Manager
	catalog        Catalog
	orders         Orders
	payments       Payments
	returns        Returns
	shipping       Shipping
	wishlist       Wishlist
	addresses      Addresses
	users          Users
	chat           Chat
	notifications  Notifications
	auth           Auth
	uploads        UploadSigner
	logger         *slog.Logger
}

// Dependencies wires Handlers. Auth and Uploads may be nil; the routes they
// back then answer 503.
type Dependencies struct {
	Config         *config.Config
	DB             Pinger
	SessionManager *session.Manager
	Catalog        Catalog
	Orders         Orders
	Payments       Payments
	Returns        Returns
	Shipping       Shipping
	Wishlist       Wishlist
	Addresses      Addresses
	Users          Users
	Chat           Chat
	Notifications  Notifications
	Auth           Auth
	Uploads        UploadSigner
	Logger         *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("handlers dependencies: catalog is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("handlers dependencies: orders is required")
	}
	if deps.Payments == nil {
		return nil, fmt.Errorf("handlers dependencies: payments is required")
	}
	if deps.Returns == nil {
		return nil, fmt.Errorf("handlers dependencies: returns is required")
	}
	if deps.Shipping == nil {
		return nil, fmt.Errorf("handlers dependencies: shipping is required")
	}
	if deps.Wishlist == nil {
		return nil, fmt.Errorf("handlers dependencies: wishlist is required")
	}
	if deps.Addresses == nil {
		return nil, fmt.Errorf("handlers dependencies: addresses is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("handlers dependencies: users is required")
	}
	if deps.Chat == nil {
		return nil, fmt.Errorf("handlers dependencies: chat is required")
	}
	if deps.Notifications == nil {
		return nil, fmt.Errorf("handlers dependencies: notifications is required")
	}

	return &Handlers{
		config:         deps.Config,
		db:             deps.DB,
		sessionManager: deps.SessionManager,
		catalog:        deps.Catalog,
		orders:         deps.Orders,
		payments:       deps.Payments,
		returns:        deps.Returns,
		shipping:       deps.Shipping,
		wishlist:       deps.Wishlist,
		addresses:      deps.Addresses,
		users:          deps.Users,
		chat:           deps.Chat,
		notifications:  deps.Notifications,
		auth:           deps.Auth,
		uploads:        deps.Uploads,
		logger:         logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		writeMessage(w, http.StatusServiceUnavailable, "Database unhealthy")
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusNotFound, "Not found")
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// SessionMiddleware adds session data to the request context
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
