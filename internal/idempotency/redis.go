package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisPrefix = "soundbite:idempotency:"

const (
	redisMaxAttempts = 3
	redisRetryDelay  = time.Second
)

// ErrNotReady indicates the Redis provider has no usable connection.
var ErrNotReady = errors.New("redis cache not ready")

// RedisProvider is a Provider backed by a shared Redis instance. Keys are
// namespaced under a fixed prefix and records are stored as JSON strings with
// a native Redis TTL. Transient failures are retried with linear backoff
// before the error surfaces to the caller.
type RedisProvider struct {
	client redis.Cmdable
	prefix string
	logger *zap.Logger
}

// NewRedisProvider wraps an established Redis client. An empty prefix selects
// the default namespace.
func NewRedisProvider(client redis.Cmdable, prefix string, logger *zap.Logger) *RedisProvider {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProvider{client: client, prefix: prefix, logger: logger}
}

// Get fetches and decodes the record stored under key.
func (r *RedisProvider) Get(ctx context.Context, key string) (CachedResponse, bool, error) {
	if r.client == nil {
		return CachedResponse{}, false, ErrNotReady
	}
	var raw string
	err := r.withRetry(ctx, "get", func() error {
		var opErr error
		raw, opErr = r.client.Get(ctx, r.prefix+key).Result()
		return opErr
	})
	if errors.Is(err, redis.Nil) {
		return CachedResponse{}, false, nil
	}
	if err != nil {
		return CachedResponse{}, false, fmt.Errorf("redis get: %w", err)
	}
	var value CachedResponse
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return CachedResponse{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	return value, true, nil
}

// Set serializes the record and stores it with the TTL rounded up to whole
// seconds, as Redis expirations require.
func (r *RedisProvider) Set(ctx context.Context, key string, value CachedResponse, ttl time.Duration) error {
	if r.client == nil {
		return ErrNotReady
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}
	expiry := time.Duration(math.Ceil(ttl.Seconds())) * time.Second
	err = r.withRetry(ctx, "set", func() error {
		return r.client.Set(ctx, r.prefix+key, payload, expiry).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the record; a missing key is not an error.
func (r *RedisProvider) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return ErrNotReady
	}
	err := r.withRetry(ctx, "delete", func() error {
		return r.client.Del(ctx, r.prefix+key).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear deletes every key in the provider's namespace.
func (r *RedisProvider) Clear(ctx context.Context) error {
	keys, err := r.namespaceKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	err = r.withRetry(ctx, "clear", func() error {
		return r.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	r.logger.Info("cleared idempotency cache", zap.Int("entries", len(keys)))
	return nil
}

// Size counts keys in the namespace. Redis expires entries natively, so only
// live keys are reported.
func (r *RedisProvider) Size(ctx context.Context) (int, error) {
	keys, err := r.namespaceKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Keys lists live keys with the namespace prefix stripped.
func (r *RedisProvider) Keys(ctx context.Context) ([]string, error) {
	fullKeys, err := r.namespaceKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(fullKeys))
	for _, key := range fullKeys {
		keys = append(keys, strings.TrimPrefix(key, r.prefix))
	}
	return keys, nil
}

func (r *RedisProvider) namespaceKeys(ctx context.Context) ([]string, error) {
	if r.client == nil {
		return nil, ErrNotReady
	}
	var keys []string
	err := r.withRetry(ctx, "keys", func() error {
		var opErr error
		keys, opErr = r.client.Keys(ctx, r.prefix+"*").Result()
		return opErr
	})
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	return keys, nil
}

// withRetry runs op up to redisMaxAttempts times, sleeping attempt*delay
// between tries. redis.Nil is a definitive answer and is never retried.
func (r *RedisProvider) withRetry(ctx context.Context, name string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= redisMaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || errors.Is(lastErr, redis.Nil) {
			return lastErr
		}
		if attempt == redisMaxAttempts {
			break
		}
		r.logger.Warn("redis operation failed, retrying",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		select {
		case <-time.After(time.Duration(attempt) * redisRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
