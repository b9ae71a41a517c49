package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeys(t *testing.T) (*ecdsa.PrivateKey, string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	priv, err := key.Bytes()
	require.NoError(t, err)
	pub, err := key.PublicKey.Bytes()
	require.NoError(t, err)
	return key, base64.RawURLEncoding.EncodeToString(pub), base64.RawURLEncoding.EncodeToString(priv)
}

func TestVAPIDSender_Send(t *testing.T) {
	t.Parallel()

	key, pub, priv := newTestKeys(t)

	var authorization, ttl string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		ttl = r.Header.Get("TTL")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender, err := NewVAPIDSender(pub, priv, "mailto:ops@example.com", server.Client())
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), Subscription{Endpoint: server.URL + "/push/abc"}, nil))

	assert.Equal(t, "86400", ttl)
	require.True(t, strings.HasPrefix(authorization, "vapid t="))
	parts := strings.SplitN(strings.TrimPrefix(authorization, "vapid t="), ", k=", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, pub, parts[1])

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(parts[0], claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	assert.Equal(t, jwt.ClaimStrings{server.URL}, claims.Audience)
	assert.Equal(t, "mailto:ops@example.com", claims.Subject)
}

func TestVAPIDSender_SubscriptionGone(t *testing.T) {
	t.Parallel()

	_, pub, priv := newTestKeys(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	sender, err := NewVAPIDSender(pub, priv, "mailto:ops@example.com", server.Client())
	require.NoError(t, err)

	err = sender.Send(context.Background(), Subscription{Endpoint: server.URL}, nil)
	assert.True(t, errors.Is(err, ErrSubscriptionGone))
}

func TestNewVAPIDSender_RejectsMismatchedKeys(t *testing.T) {
	t.Parallel()

	_, pub, _ := newTestKeys(t)
	_, _, otherPriv := newTestKeys(t)

	_, err := NewVAPIDSender(pub, otherPriv, "mailto:ops@example.com", nil)
	assert.Error(t, err)
}
