package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:session:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, connectionString string) (*RedisStore, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis connection string: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w (and failed to close client: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (*Data, bool) {
	if r == nil || r.client == nil || key == "" {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	val, err := r.client.Get(ctx, redisSessionKey(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var data Data
	if err := json.Unmarshal(val, &data); err != nil {
		return nil, false
	}

	return &data, true
}

func (r *RedisStore) Set(ctx context.Context, key string, data *Data, ttl time.Duration) {
	if r == nil || r.client == nil || key == "" || data == nil {
		return
	}

	val, err := json.Marshal(data)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_ = r.client.Set(ctx, redisSessionKey(key), val, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) {
	if r == nil || r.client == nil || key == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_ = r.client.Del(ctx, redisSessionKey(key)).Err()
}

func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func redisSessionKey(id string) string {
	return redisKeyPrefix + id
}
