package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostmarkProvider_SendEmail(t *testing.T) {
	t.Parallel()

	var got postmarkEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Postmark-Server-Token") != "token" {
			t.Errorf("missing server token header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"m-1"}`))
	}))
	defer server.Close()

	provider := NewPostmarkProvider("token", "shop@example.com", server.Client())
	provider.endpoint = server.URL

	err := provider.SendEmail(context.Background(), &Email{To: "buyer@example.com", Subject: "hi", Text: "body"})
	if err != nil {
		t.Fatalf("SendEmail() error = %v", err)
	}
	if got.From != "shop@example.com" || got.To != "buyer@example.com" || got.TextBody != "body" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestPostmarkProvider_SendEmailError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer server.Close()

	provider := NewPostmarkProvider("token", "shop@example.com", server.Client())
	provider.endpoint = server.URL

	err := provider.SendEmail(context.Background(), &Email{To: "x", Subject: "s", Text: "b"})
	if err == nil || !strings.Contains(err.Error(), "postmark error (300)") {
		t.Fatalf("SendEmail() error = %v, want postmark error (300)", err)
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{})
	if err != nil || provider != nil {
		t.Fatalf("NewProvider(empty) = %v, %v; want nil, nil", provider, err)
	}
	if _, err := NewProvider(Config{Provider: "mailgun"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if provider, err := NewProvider(Config{Provider: "resend", APIKey: "re_x", From: "a@b.c"}); err != nil || provider == nil {
		t.Fatalf("NewProvider(resend) = %v, %v", provider, err)
	}
}
