package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateConfig caps requests per window for one scope.
type RateConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter implements a fixed-window counter in Redis, split into read
// and write scopes so retries of idempotent writes cannot starve reads.
type RateLimiter struct {
	client   redis.Cmdable
	readCfg  RateConfig
	writeCfg RateConfig
}

// NewRateLimiter constructs the limiter. A nil client disables limiting.
func NewRateLimiter(client redis.Cmdable, read, write RateConfig) *RateLimiter {
	if client == nil {
		return nil
	}
	return &RateLimiter{client: client, readCfg: read, writeCfg: write}
}

// Middleware enforces the per-client limits.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || (l.readCfg.Limit <= 0 && l.writeCfg.Limit <= 0) {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, scope := l.writeCfg, "write"
		if isReadMethod(r.Method) {
			cfg, scope = l.readCfg, "read"
		}
		if cfg.Limit <= 0 || cfg.Window <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		allowed, retryAfter, err := l.allow(r.Context(), scope, clientIdentifier(r), cfg)
		if err != nil {
			// Limiter trouble must not take the API down.
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(ctx context.Context, scope, identifier string, cfg RateConfig) (bool, time.Duration, error) {
	window := time.Now().UnixMilli() / cfg.Window.Milliseconds()
	key := fmt.Sprintf("rl:%s:%s:%d", scope, identifier, window)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, key, cfg.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count > int64(cfg.Limit) {
		remaining := time.Duration((window+1)*cfg.Window.Milliseconds()-time.Now().UnixMilli()) * time.Millisecond
		if remaining < time.Second {
			remaining = time.Second
		}
		return false, remaining, nil
	}
	return true, 0, nil
}

func isReadMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func clientIdentifier(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
