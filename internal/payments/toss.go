package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onceloved/storefront/internal/observability"
)

const defaultTossBaseURL = "https://api.tosspayments.com"

// TossGateway talks to the Toss Payments v1 REST API with Basic auth.
type TossGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewTossGateway(secretKey, baseURL string, httpClient *http.Client) *TossGateway {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultTossBaseURL
	}
	if httpClient == nil {
		httpClient = observability.NewHTTPClient(30 * time.Second)
	}
	return &TossGateway{secretKey: secretKey, baseURL: baseURL, httpClient: httpClient}
}

func (g *TossGateway) Name() string {
	return "toss"
}

type tossPayment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	TotalAmount int64  `json:"totalAmount"`
	ApprovedAt  string `json:"approvedAt"`
}

type tossError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *TossGateway) Confirm(ctx context.Context, req ConfirmRequest) (*Result, error) {
	return g.post(ctx, "/v1/payments/confirm", map[string]any{
		"paymentKey": req.PaymentKey,
		"orderId":    req.OrderID,
		"amount":     req.Amount,
	})
}

func (g *TossGateway) Cancel(ctx context.Context, req CancelRequest) (*Result, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "customer request"
	}
	body := map[string]any{"cancelReason": reason}
	if req.Amount > 0 {
		body["cancelAmount"] = req.Amount
	}
	return g.post(ctx, "/v1/payments/"+url.PathEscape(req.PaymentKey)+"/cancel", body)
}

func (g *TossGateway) post(ctx context.Context, path string, payload map[string]any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal toss request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create toss request: %w", err)
	}
	req.Header.Set("Authorization", g.authorization())
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call toss: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read toss response: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close toss response body: %w", closeErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var upstream tossError
		if json.Unmarshal(raw, &upstream) != nil || upstream.Message == "" {
			upstream.Message = strings.TrimSpace(string(raw))
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Code: upstream.Code, Message: upstream.Message}
	}

	var payment tossPayment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, fmt.Errorf("failed to parse toss response: %w", err)
	}

	result := &Result{
		PaymentKey: payment.PaymentKey,
		Status:     payment.Status,
		Method:     payment.Method,
		Amount:     payment.TotalAmount,
		Raw:        json.RawMessage(raw),
	}
	if payment.ApprovedAt != "" {
		if approvedAt, err := time.Parse(time.RFC3339, payment.ApprovedAt); err == nil {
			approvedAt = approvedAt.UTC()
			result.ApprovedAt = &approvedAt
		}
	}
	return result, nil
}

// authorization encodes the secret key as the Basic-auth user with an empty password.
func (g *TossGateway) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(g.secretKey+":"))
}
