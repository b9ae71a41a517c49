package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

// Trace headers are only sent to these hosts. Push service endpoints come
// from browsers and never receive them.
var tracePropagationTargets = []string{
	"api.tosspayments.com",
	"api.stripe.com",
	"api.resend.com",
	"api.postmarkapp.com",
	"oauth2.googleapis.com",
	"www.googleapis.com",
}

// NewHTTPClient returns a client whose requests become Sentry spans.
// A zero timeout means none.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: sentryhttpclient.NewSentryRoundTripper(
			http.DefaultTransport,
			sentryhttpclient.WithTracePropagationTargets(tracePropagationTargets),
		),
		Timeout: timeout,
	}
}
