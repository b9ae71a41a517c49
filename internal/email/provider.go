// Package email sends transactional mail through Resend or Postmark.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
}

// NewProvider returns nil without error when no provider is configured; callers
// treat a nil Provider as "mail disabled".
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "postmark":
		return NewPostmarkProvider(cfg.APIKey, cfg.From, nil), nil
	case "resend":
		return NewResendProvider(cfg.APIKey, cfg.From), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'postmark' or 'resend'")
	}
}
