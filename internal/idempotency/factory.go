package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Config selects the cache backend at startup. Backend is "memory" or
// "redis"; anything else falls back to memory. RedisURL is only consulted
// when Backend is "redis" and no client was supplied.
type Config struct {
	Backend  string
	RedisURL string
	Memory   MemoryConfig
}

// NewProvider builds the configured Provider. When the Redis backend cannot
// be reached the in-memory provider is returned instead, so an unhealthy
// cache never blocks startup. The returned func releases provider resources.
func NewProvider(ctx context.Context, cfg Config, client *redis.Client, logger *zap.Logger) (Provider, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Backend == "redis" {
		ownsClient := false
		if client == nil {
			url := cfg.RedisURL
			if url == "" {
				url = "redis://localhost:6379"
			}
			opts, err := redis.ParseURL(url)
			if err != nil {
				logger.Warn("invalid redis url, falling back to in-memory cache", zap.Error(err))
				return newMemory(cfg, logger)
			}
			client = redis.NewClient(opts)
			ownsClient = true
		}

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-memory cache", zap.Error(err))
			if ownsClient {
				_ = client.Close()
			}
			return newMemory(cfg, logger)
		}

		logger.Info("idempotency cache backend ready", zap.String("backend", "redis"))
		provider := NewRedisProvider(client, "", logger)
		cleanup := func() {}
		if ownsClient {
			cleanup = func() { _ = client.Close() }
		}
		return provider, cleanup
	}

	return newMemory(cfg, logger)
}

func newMemory(cfg Config, logger *zap.Logger) (Provider, func()) {
	logger.Info("idempotency cache backend ready", zap.String("backend", "memory"))
	provider := NewMemoryProvider(logger, cfg.Memory)
	return provider, provider.Close
}
