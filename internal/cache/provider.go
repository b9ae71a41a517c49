// Package cache stores short-lived values: order idempotency records and
// rendered assistant context.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("key not found")

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetIfAbsent stores value only when key is missing or expired and
	// reports whether it did.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// IdempotencyKey scopes a client supplied Idempotency-Key to its caller.
func IdempotencyKey(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, strings.TrimSpace(key))
}

func ProductContextKey(productID string, updatedAt time.Time) string {
	return fmt.Sprintf("assistant:product:%s:%d", productID, updatedAt.UnixNano())
}
