// Package push delivers Web Push messages signed with VAPID.
package push

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/onceloved/storefront/internal/observability"
)

// ErrSubscriptionGone means the push service no longer knows the endpoint.
var ErrSubscriptionGone = errors.New("push subscription expired")

const (
	defaultTTL  = 24 * time.Hour
	tokenExpiry = 12 * time.Hour
)

// Subscription is the browser's PushSubscription with its keys in base64url.
type Subscription struct {
	Endpoint string
	P256DH   string
	Auth     string
}

type Sender interface {
	Send(ctx context.Context, sub Subscription, payload []byte) error
	PublicKey() string
}

type VAPIDSender struct {
	key        *ecdsa.PrivateKey
	publicKey  string
	subject    string
	httpClient *http.Client
	now        func() time.Time
}

// NewVAPIDSender takes the base64url encoded raw P-256 private scalar and the
// matching uncompressed public point, as produced by common VAPID key generators.
func NewVAPIDSender(publicKey, privateKey, subject string, httpClient *http.Client) (*VAPIDSender, error) {
	raw, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode VAPID private key: %w", err)
	}
	key, err := ecdsa.ParseRawPrivateKey(elliptic.P256(), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VAPID private key: %w", err)
	}

	derived, err := key.PublicKey.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode VAPID public key: %w", err)
	}
	if publicKey != "" {
		given, err := decodeKey(publicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode VAPID public key: %w", err)
		}
		if string(given) != string(derived) {
			return nil, fmt.Errorf("VAPID public key does not match the private key")
		}
	}

	if subject == "" {
		return nil, fmt.Errorf("VAPID subject is required")
	}
	if httpClient == nil {
		httpClient = observability.NewHTTPClient(10 * time.Second)
	}

	return &VAPIDSender{
		key:        key,
		publicKey:  base64.RawURLEncoding.EncodeToString(derived),
		subject:    subject,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

func (s *VAPIDSender) PublicKey() string {
	return s.publicKey
}

// Send delivers payload to the subscription. An empty payload only wakes the
// service worker and needs no subscription keys.
func (s *VAPIDSender) Send(ctx context.Context, sub Subscription, payload []byte) error {
	audience, err := origin(sub.Endpoint)
	if err != nil {
		return err
	}

	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiry)),
		Subject:   s.subject,
	}).SignedString(s.key)
	if err != nil {
		return fmt.Errorf("failed to sign VAPID token: %w", err)
	}

	var body io.Reader
	if len(payload) > 0 {
		sealed, err := encrypt(payload, sub.P256DH, sub.Auth, rand.Reader)
		if err != nil {
			return err
		}
		body = bytes.NewReader(sealed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Content-Encoding", "aes128gcm")
	}
	req.Header.Set("TTL", fmt.Sprintf("%d", int(defaultTTL.Seconds())))
	req.Header.Set("Urgency", "normal")
	req.Header.Set("Authorization", fmt.Sprintf("vapid t=%s, k=%s", token, s.publicKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver push: %w", err)
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("failed to close push response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("push service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func origin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid push endpoint %q", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}

func decodeKey(value string) ([]byte, error) {
	value = strings.TrimRight(strings.TrimSpace(value), "=")
	return base64.RawURLEncoding.DecodeString(value)
}
