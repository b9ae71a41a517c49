package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onceloved/storefront/internal/media"
)

func TestSubscribe_UsesSessionUser(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	notifications := deps.Notifications.(*fakeNotifications)
	h := newTestHandlers(t, deps)
	buyer := customer()

	body := `{"endpoint":"https://fcm.googleapis.com/fcm/send/abc","keys":{"p256dh":"BNc","auth":"tBH"}}`
	rec := httptest.NewRecorder()
	h.Subscribe(rec, newRequest(http.MethodPost, "/api/notifications/subscribe", body, buyer, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	got := notifications.subscribed
	if got == nil || got.UserID != buyer.UserID.String() || got.Keys.P256DH != "BNc" || got.Keys.Auth != "tBH" {
		t.Fatalf("unexpected subscription input %+v", got)
	}
}

func TestSendNotification_RequiresUserID(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, testDeps())
	rec := httptest.NewRecorder()
	h.SendNotification(rec, newRequest(http.MethodPost, "/api/notifications/send", `{"title":"배송 시작","body":"주문하신 상품이 출고되었습니다"}`, admin(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSignUpload(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t, testDeps())
	rec := httptest.NewRecorder()
	h.SignUpload(rec, newRequest(http.MethodPost, "/api/cloudinary-sign", "", admin(), nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured: expected %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	deps := testDeps()
	deps.Uploads = fakeSigner{}
	h = newTestHandlers(t, deps)

	rec = httptest.NewRecorder()
	h.SignUpload(rec, newRequest(http.MethodPost, "/api/cloudinary-sign", "", admin(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body: expected %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got := decodeBody[media.Signature](t, rec); got.Folder != media.DefaultFolder || got.Signature == "" {
		t.Fatalf("unexpected signature %+v", got)
	}

	rec = httptest.NewRecorder()
	h.SignUpload(rec, newRequest(http.MethodPost, "/api/cloudinary-sign", `{"folder":"lighting"}`, admin(), nil))
	if got := decodeBody[media.Signature](t, rec); got.Folder != "lighting" {
		t.Fatalf("expected requested folder, got %+v", got)
	}
}
