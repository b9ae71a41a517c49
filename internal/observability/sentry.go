package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the Sentry client. An empty DSN leaves Sentry disabled and
// every span and meter call becomes a no-op.
func Init(dsn, environment string) (func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		TracesSampleRate: 0.2,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}
