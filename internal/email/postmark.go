package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onceloved/storefront/internal/observability"
)

const postmarkEndpoint = "https://api.postmarkapp.com/email"

type PostmarkProvider struct {
	apiKey     string
	from       string
	endpoint   string
	httpClient *http.Client
}

type postmarkResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	TextBody      string `json:"TextBody,omitempty"`
	HtmlBody      string `json:"HtmlBody,omitempty"`
	MessageStream string `json:"MessageStream"`
}

func NewPostmarkProvider(apiKey, from string, httpClient *http.Client) *PostmarkProvider {
	if httpClient == nil {
		httpClient = observability.NewHTTPClient(30 * time.Second)
	}
	return &PostmarkProvider{
		apiKey:     apiKey,
		from:       from,
		endpoint:   postmarkEndpoint,
		httpClient: httpClient,
	}
}

func (p *PostmarkProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}

	jsonData, err := json.Marshal(postmarkEmail{
		From:          p.from,
		To:            email.To,
		Subject:       email.Subject,
		TextBody:      email.Text,
		HtmlBody:      email.HTML,
		MessageStream: "outbound",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read postmark response: %w", readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close postmark response body: %w", closeErr)
	}

	var result postmarkResponse
	parseErr := json.Unmarshal(body, &result)
	if resp.StatusCode != http.StatusOK {
		if parseErr == nil && result.ErrorCode != 0 {
			return fmt.Errorf("postmark error (%d): %s", result.ErrorCode, result.Message)
		}
		return fmt.Errorf("postmark API returned status %d: %s", resp.StatusCode, string(body))
	}
	if parseErr != nil {
		return fmt.Errorf("failed to parse response: %w", parseErr)
	}
	if result.ErrorCode != 0 {
		return fmt.Errorf("postmark error (%d): %s", result.ErrorCode, result.Message)
	}
	return nil
}
