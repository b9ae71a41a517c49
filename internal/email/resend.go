package email

import (
	"context"
	"fmt"

	resend "github.com/resend/resend-go/v3"
)

type ResendProvider struct {
	from   string
	client *resend.Client
}

func NewResendProvider(apiKey, from string) *ResendProvider {
	return &ResendProvider{
		from:   from,
		client: resend.NewClient(apiKey),
	}
}

func (r *ResendProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email body is empty")
	}

	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}
