package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/onceloved/storefront/internal/config"
	"github.com/onceloved/storefront/internal/handlers"
	"github.com/onceloved/storefront/internal/session"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Gemini replies and gateway confirmations can take a while.
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func signedIn(fn http.HandlerFunc) http.Handler {
	return session.RequireAuth(fn)
}

func adminOnly(fn http.HandlerFunc) http.Handler {
	return session.RequireAdmin(fn)
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.SessionMiddleware)
	r.Use(h.MetricsContext)
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	r.HandleFunc("/auth/google/login", h.GoogleLogin).Methods("GET").Name("auth.google.login")
	r.HandleFunc("/auth/google/callback", h.GoogleCallback).Methods("GET").Name("auth.google.callback")
	r.HandleFunc("/auth/logout", h.Logout).Methods("GET", "POST").Name("auth.logout")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireSameOrigin)
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler

	api.Handle("/me", signedIn(h.Me)).Methods("GET").Name("me")

	// Catalog
	api.HandleFunc("/products", h.ListProducts).Methods("GET").Name("products.list")
	api.Handle("/products", adminOnly(h.CreateProduct)).Methods("POST").Name("products.create")
	api.Handle("/products", adminOnly(h.DeleteProducts)).Methods("DELETE").Name("products.delete_many")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET").Name("products.get")
	api.Handle("/products/{id}", adminOnly(h.UpdateProduct)).Methods("PUT").Name("products.update")
	api.Handle("/products/{id}", adminOnly(h.DeleteProduct)).Methods("DELETE").Name("products.delete")
	api.Handle("/products/{id}/active", adminOnly(h.ToggleProductActive)).Methods("PATCH").Name("products.toggle_active")

	// Orders
	api.Handle("/orders", signedIn(h.ListOrders)).Methods("GET").Name("orders.list")
	api.Handle("/orders", signedIn(h.CreateOrder)).Methods("POST").Name("orders.create")
	api.Handle("/orders", adminOnly(h.UpdateOrderStatus)).Methods("PUT").Name("orders.update_status")
	api.Handle("/orders/{id}", signedIn(h.GetOrder)).Methods("GET").Name("orders.get")
	api.Handle("/orders/{id}", signedIn(h.PatchOrder)).Methods("PATCH").Name("orders.patch")
	api.Handle("/orders/{id}", adminOnly(h.DeleteOrder)).Methods("DELETE").Name("orders.delete")

	// Payments
	api.Handle("/payments/confirm", signedIn(h.ConfirmPayment)).Methods("POST").Name("payments.confirm")
	api.Handle("/payments", signedIn(h.ListPayments)).Methods("GET").Name("payments.list")
	api.Handle("/payments", adminOnly(h.UpdatePayment)).Methods("PUT").Name("payments.update")

	// Returns and shipping
	api.Handle("/returns", signedIn(h.ListReturns)).Methods("GET").Name("returns.list")
	api.Handle("/returns", signedIn(h.FileReturn)).Methods("POST").Name("returns.create")
	api.Handle("/returns", adminOnly(h.UpdateReturn)).Methods("PUT").Name("returns.update")
	api.Handle("/shipping", signedIn(h.GetShipping)).Methods("GET").Name("shipping.get")
	api.Handle("/shipping", adminOnly(h.CreateShipping)).Methods("POST").Name("shipping.create")
	api.Handle("/shipping", adminOnly(h.UpdateShipping)).Methods("PUT").Name("shipping.update")

	// Customer data
	api.Handle("/wishlist", signedIn(h.ListWishlist)).Methods("GET").Name("wishlist.list")
	api.Handle("/wishlist", signedIn(h.AddWishlist)).Methods("POST").Name("wishlist.add")
	api.Handle("/wishlist", signedIn(h.RemoveWishlist)).Methods("DELETE").Name("wishlist.remove")
	api.Handle("/addresses", signedIn(h.ListAddresses)).Methods("GET").Name("addresses.list")
	api.Handle("/addresses", signedIn(h.CreateAddress)).Methods("POST").Name("addresses.create")
	api.Handle("/addresses", signedIn(h.UpdateAddress)).Methods("PUT").Name("addresses.update")
	api.Handle("/addresses", signedIn(h.DeleteAddress)).Methods("DELETE").Name("addresses.delete")

	api.Handle("/users", adminOnly(h.ListUsers)).Methods("GET").Name("users.list")
	api.Handle("/users/{id}", adminOnly(h.GetUser)).Methods("GET").Name("users.get")
	api.Handle("/users/{id}", adminOnly(h.UpdateUser)).Methods("PUT").Name("users.update")
	api.Handle("/users/{id}", adminOnly(h.DeleteUser)).Methods("DELETE").Name("users.delete")

	// Chat
	api.Handle("/chat/sessions", signedIn(h.ListChatSessions)).Methods("GET").Name("chat.sessions.list")
	api.Handle("/chat/sessions", signedIn(h.CreateChatSession)).Methods("POST").Name("chat.sessions.create")
	api.Handle("/chat/sessions/{id}", signedIn(h.GetChatSession)).Methods("GET").Name("chat.sessions.get")
	api.Handle("/chat/sessions/{id}", signedIn(h.UpdateChatSession)).Methods("PATCH").Name("chat.sessions.update")
	api.Handle("/chat/sessions/{id}", signedIn(h.DeleteChatSession)).Methods("DELETE").Name("chat.sessions.delete")
	api.Handle("/chat/sessions/{id}/messages", signedIn(h.ListChatMessages)).Methods("GET").Name("chat.messages.list")
	api.Handle("/chat/sessions/{id}/messages", signedIn(h.AppendChatMessage)).Methods("POST").Name("chat.messages.create")
	api.HandleFunc("/ai-chat", h.AskAssistant).Methods("POST").Name("ai_chat")

	// Notifications and media
	api.HandleFunc("/notifications/vapid-public-key", h.VAPIDPublicKey).Methods("GET").Name("notifications.vapid_key")
	api.Handle("/notifications/subscribe", signedIn(h.Subscribe)).Methods("POST").Name("notifications.subscribe")
	api.Handle("/notifications/subscribe", signedIn(h.Unsubscribe)).Methods("DELETE").Name("notifications.unsubscribe")
	api.Handle("/notifications/send", adminOnly(h.SendNotification)).Methods("POST").Name("notifications.send")
	api.Handle("/cloudinary-sign", adminOnly(h.SignUpload)).Methods("POST").Name("cloudinary.sign")

	return r
}
