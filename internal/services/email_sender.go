package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/email"
	"github.com/onceloved/storefront/internal/models"
)

type userReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OrderEmailSender renders order mail and hands it to the configured provider.
// Without a provider every send is a no-op.
type OrderEmailSender struct {
	provider email.Provider
	renderer *email.Renderer
	users    userReader
	shop     email.Shop
}

func NewOrderEmailSender(provider email.Provider, renderer *email.Renderer, users userReader, shop email.Shop) *OrderEmailSender {
	return &OrderEmailSender{
		provider: provider,
		renderer: renderer,
		users:    users,
		shop:     shop,
	}
}

func (s *OrderEmailSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if s == nil || s.provider == nil {
		return nil
	}
	to, name, err := s.recipient(ctx, order)
	if err != nil || to == "" {
		return err
	}

	msg, err := s.renderer.Render(email.TemplateOrderConfirmation, to, email.NewOrderMail(s.shop, name, order))
	if err != nil {
		return err
	}
	return s.provider.SendEmail(ctx, msg)
}

func (s *OrderEmailSender) SendReturnReceived(ctx context.Context, order *models.Order, ret *models.ReturnRequest) error {
	if s == nil || s.provider == nil {
		return nil
	}
	to, name, err := s.recipient(ctx, order)
	if err != nil || to == "" {
		return err
	}

	msg, err := s.renderer.Render(email.TemplateReturnReceived, to, email.NewReturnMail(s.shop, name, order.OrderNumber, ret))
	if err != nil {
		return err
	}
	return s.provider.SendEmail(ctx, msg)
}

func (s *OrderEmailSender) SendReturnRefunded(ctx context.Context, order *models.Order, ret *models.ReturnRequest) error {
	if s == nil || s.provider == nil {
		return nil
	}
	to, name, err := s.recipient(ctx, order)
	if err != nil || to == "" {
		return err
	}

	msg, err := s.renderer.Render(email.TemplateReturnRefunded, to, email.NewReturnMail(s.shop, name, order.OrderNumber, ret))
	if err != nil {
		return err
	}
	return s.provider.SendEmail(ctx, msg)
}

// recipient resolves the order's customer. Guest orders carry the email as
// the customer id; signed-in customers are looked up by user id.
func (s *OrderEmailSender) recipient(ctx context.Context, order *models.Order) (string, string, error) {
	name := ""
	if order.ShippingAddress != nil {
		name = order.ShippingAddress.RecipientName
	}

	customerID := strings.TrimSpace(order.CustomerID)
	if strings.Contains(customerID, "@") {
		return customerID, name, nil
	}

	userID, err := uuid.Parse(customerID)
	if err != nil || s.users == nil {
		return "", name, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", name, fmt.Errorf("failed to look up customer %s: %w", userID, err)
	}
	if name == "" {
		name = user.Name
	}
	return user.Email, name, nil
}
