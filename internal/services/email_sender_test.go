package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/email"
	"github.com/onceloved/storefront/internal/models"
)

type capturingProvider struct {
	sent []*email.Email
}

func (c *capturingProvider) SendEmail(_ context.Context, msg *email.Email) error {
	c.sent = append(c.sent, msg)
	return nil
}

type userDirectory map[uuid.UUID]*models.User

func (d userDirectory) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := d[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return user, nil
}

func TestOrderEmailSender_Recipients(t *testing.T) {
	t.Parallel()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)

	member := &models.User{ID: uuid.New(), Email: "member@example.com", Name: "김회원"}
	directory := userDirectory{member.ID: member}
	shop := email.Shop{Name: "원스러브드", URL: "https://onceloved.kr"}

	tests := []struct {
		name       string
		customerID string
		wantTo     string
	}{
		{name: "signed-in customer", customerID: member.ID.String(), wantTo: "member@example.com"},
		{name: "guest email", customerID: "guest@example.com", wantTo: "guest@example.com"},
		{name: "opaque id is skipped", customerID: "anonymous-42", wantTo: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &capturingProvider{}
			sender := NewOrderEmailSender(provider, renderer, directory, shop)
			order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-20260301100000-0001", CustomerID: tt.customerID, FinalAmount: 52500}

			require.NoError(t, sender.SendOrderConfirmation(context.Background(), order))
			if tt.wantTo == "" {
				assert.Empty(t, provider.sent)
				return
			}
			require.Len(t, provider.sent, 1)
			assert.Equal(t, tt.wantTo, provider.sent[0].To)
			assert.Contains(t, provider.sent[0].Subject, "ORD-20260301100000-0001")
		})
	}
}

func TestOrderEmailSender_UnknownMember(t *testing.T) {
	t.Parallel()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)
	sender := NewOrderEmailSender(&capturingProvider{}, renderer, userDirectory{}, email.Shop{Name: "원스러브드"})

	err = sender.SendReturnReceived(context.Background(), &models.Order{CustomerID: uuid.NewString()}, &models.ReturnRequest{Reason: "파손"})
	assert.Error(t, err)
}

func TestOrderEmailSender_WithoutProvider(t *testing.T) {
	t.Parallel()

	sender := NewOrderEmailSender(nil, nil, nil, email.Shop{})
	assert.NoError(t, sender.SendOrderConfirmation(context.Background(), &models.Order{CustomerID: "guest@example.com"}))
}

func TestOrderEmailSender_ReturnRefunded(t *testing.T) {
	t.Parallel()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)
	provider := &capturingProvider{}
	sender := NewOrderEmailSender(provider, renderer, userDirectory{}, email.Shop{Name: "원스러브드"})

	order := &models.Order{OrderNumber: "ORD-20260301100000-0007", CustomerID: "guest@example.com"}
	require.NoError(t, sender.SendReturnRefunded(context.Background(), order, &models.ReturnRequest{Reason: "파손", RefundAmount: 320000}))

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "guest@example.com", provider.sent[0].To)
	assert.Equal(t, "[원스러브드] 반품 환불이 완료되었습니다 (ORD-20260301100000-0007)", provider.sent[0].Subject)
	assert.Contains(t, provider.sent[0].Text, "320,000원")
}
