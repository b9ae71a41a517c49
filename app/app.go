package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/ai"
	"github.com/onceloved/storefront/internal/cache"
	"github.com/onceloved/storefront/internal/catalog"
	"github.com/onceloved/storefront/internal/config"
	"github.com/onceloved/storefront/internal/crypto"
	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/email"
	"github.com/onceloved/storefront/internal/handlers"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/media"
	"github.com/onceloved/storefront/internal/observability"
	"github.com/onceloved/storefront/internal/payments"
	"github.com/onceloved/storefront/internal/push"
	"github.com/onceloved/storefront/internal/services"
	"github.com/onceloved/storefront/internal/session"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers

	flushSentry func()
}

// New loads configuration, connects to the database, applies migrations and
// wires every service behind the HTTP handlers.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	flushSentry, err := observability.Init(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	a := &App{Config: cfg, Logger: logger, flushSentry: flushSentry}

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = database

	if err := db.Migrate(startupCtx, database, logger.With("component", "migrate")); err != nil {
		a.Close()
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}
	a.CacheProvider = cacheProvider

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	a.SessionManager = session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	gateway, err := payments.NewGateway(payments.Config{
		Gateway:         cfg.PaymentGateway,
		TossSecretKey:   cfg.TossSecretKey,
		TossAPIBaseURL:  cfg.TossAPIBaseURL,
		StripeSecretKey: cfg.StripeSecretKey,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	mailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize email renderer: %w", err)
	}

	var pushSender push.Sender
	if cfg.VAPIDPublicKey != "" {
		sender, err := push.NewVAPIDSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, observability.NewHTTPClient(10*time.Second))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize push sender: %w", err)
		}
		pushSender = sender
	} else {
		logger.Info("web push disabled; VAPID keys are not set")
	}

	var assistant ai.Assistant
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiAssistant(startupCtx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize gemini: %w", err)
		}
		assistant = gemini
	} else {
		logger.Info("ai chat disabled; GEMINI_API_KEY is not set")
	}

	var uploads handlers.UploadSigner
	if cfg.CloudinaryEnabled() {
		signer, err := media.NewSigner(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
		}
		uploads = signer
	}

	productStore := db.NewProductStore(database)
	orderStore := db.NewOrderStore(database)
	userStore := db.NewUserStore(database)

	var auth handlers.Auth
	authService, err := services.NewAuthService(services.AuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		BaseURL:      cfg.BaseURL,
		AdminEmails:  cfg.AdminEmails,
	}, userStore, logger.With("component", "auth_service"))
	switch {
	case errors.Is(err, services.ErrAuthUnavailable):
		logger.Info("google sign-in disabled; GOOGLE_CLIENT_ID is not set")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	default:
		auth = authService
	}

	mailer := services.NewOrderEmailSender(mailProvider, renderer, userStore, email.Shop{Name: cfg.ShopName, URL: cfg.BaseURL})
	notificationService := services.NewNotificationService(
		db.NewPushSubscriptionStore(database),
		sealer,
		pushSender,
		logger.With("component", "notification_service"),
	)

	productService := services.NewProductService(productStore, logger.With("component", "product_service"))
	orderService := services.NewOrderService(
		orderStore,
		catalog.NewPricer(cfg.ShippingFreeThreshold, cfg.ShippingFlatFee),
		cacheProvider,
		notificationService,
		logger.With("component", "order_service"),
	)
	paymentService := services.NewPaymentService(
		db.NewPaymentStore(database),
		orderStore,
		orderService,
		gateway,
		mailer,
		logger.With("component", "payment_service"),
	)
	returnService := services.NewReturnService(
		db.NewReturnStore(database),
		orderStore,
		orderService,
		paymentService,
		mailer,
		logger.With("component", "return_service"),
	)
	shippingService := services.NewShippingService(
		db.NewShippingStore(database),
		orderStore,
		orderService,
		logger.With("component", "shipping_service"),
	)
	chatService := services.NewChatService(
		db.NewChatStore(database),
		productStore,
		assistant,
		cacheProvider,
		logger.With("component", "chat_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:         cfg,
		DB:             database,
		SessionManager: a.SessionManager,
		Catalog:        productService,
		Orders:         orderService,
		Payments:       paymentService,
		Returns:        returnService,
		Shipping:       shippingService,
		Wishlist:       services.NewWishlistService(db.NewWishlistStore(database), productStore, logger.With("component", "wishlist_service")),
		Addresses:      services.NewAddressService(db.NewAddressStore(database)),
		Users:          services.NewUserService(userStore, logger.With("component", "user_service")),
		Chat:           chatService,
		Notifications:  notificationService,
		Auth:           auth,
		Uploads:        uploads,
		Logger:         logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	a.Handlers = h
	return a, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.flushSentry != nil {
		a.flushSentry()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stdout, strings.ToLower(strings.TrimSpace(cfg.LogFormat)), cfg.LogLevel)
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
