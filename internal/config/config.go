package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	BaseURL     string `env:"BASE_URL" validate:"omitempty,url"`
	ShopName    string `env:"SHOP_NAME" envDefault:"Onceloved"`

	PaymentGateway  string `env:"PAYMENT_GATEWAY" envDefault:"toss" validate:"oneof=toss stripe"`
	TossSecretKey   string `env:"TOSS_SECRET_KEY"`
	TossAPIBaseURL  string `env:"TOSS_API_BASE_URL" envDefault:"https://api.tosspayments.com" validate:"required,url"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	AdminEmails        []string `env:"ADMIN_EMAILS" envSeparator:","`

	EmailProvider string `env:"EMAIL_PROVIDER" validate:"omitempty,oneof=resend postmark"`
	EmailAPIKey   string `env:"EMAIL_API_KEY" validate:"required_with=EmailProvider"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"required_with=EmailProvider"`

	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"VAPID_SUBJECT" envDefault:"mailto:admin@example.com"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	ShippingFreeThreshold int64 `env:"SHIPPING_FREE_THRESHOLD" envDefault:"50000" validate:"gt=0"`
	ShippingFlatFee       int64 `env:"SHIPPING_FLAT_FEE" envDefault:"2500" validate:"gte=0"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	switch c.PaymentGateway {
	case "toss":
		if strings.TrimSpace(c.TossSecretKey) == "" {
			return fmt.Errorf("TOSS_SECRET_KEY is required when PAYMENT_GATEWAY is toss")
		}
	case "stripe":
		if strings.TrimSpace(c.StripeSecretKey) == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_GATEWAY is stripe")
		}
	}

	hasGoogleClientID := strings.TrimSpace(c.GoogleClientID) != ""
	hasGoogleClientSecret := strings.TrimSpace(c.GoogleClientSecret) != ""
	if hasGoogleClientID != hasGoogleClientSecret {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	cloudinarySet := 0
	for _, v := range []string{c.CloudinaryCloudName, c.CloudinaryAPIKey, c.CloudinaryAPISecret} {
		if strings.TrimSpace(v) != "" {
			cloudinarySet++
		}
	}
	if cloudinarySet != 0 && cloudinarySet != 3 {
		return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET must be set together")
	}

	if (strings.TrimSpace(c.VAPIDPublicKey) != "") != (strings.TrimSpace(c.VAPIDPrivateKey) != "") {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if hasGoogleClientID && baseURL == "" {
		return fmt.Errorf("BASE_URL is required when Google sign-in is enabled")
	}

	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	return nil
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if strings.ToLower(strings.TrimSpace(admin)) == email {
			return true
		}
	}
	return false
}

func (c *Config) CloudinaryEnabled() bool {
	return strings.TrimSpace(c.CloudinaryCloudName) != ""
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
