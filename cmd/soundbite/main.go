package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/soundbite/internal/auth"
	httpmiddleware "github.com/example/soundbite/internal/http/middleware"
	"github.com/example/soundbite/internal/idempotency"
	"github.com/example/soundbite/internal/soundbite/domain"
	"github.com/example/soundbite/internal/soundbite/handler"
	"github.com/example/soundbite/internal/soundbite/repository"
	soundbiteservice "github.com/example/soundbite/internal/soundbite/service"
	"github.com/example/soundbite/internal/worker"
	"github.com/example/soundbite/pkg/observability"
	"github.com/example/soundbite/pkg/queue"
)

type appConfig struct {
	HTTPAddr       string
	Debug          bool
	CacheBackend   string
	RedisURL       string
	NATSURL        string
	JobSubject     string
	JWTSecret      string
	ReadRateLimit  int
	WriteRateLimit int
	RateWindow     time.Duration
	JobTimeout     time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()

	logger := observability.SetupLogger("soundbite", cfg.Debug)
	defer logger.Sync() //nolint:errcheck

	shutdownTracer, err := observability.SetupTracer(ctx, "soundbite")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdownTracer(context.Background())
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.RedisURL); err != nil {
			logger.Warn("invalid redis url", zap.Error(err))
		} else {
			client := redis.NewClient(opts)
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("redis ping failed", zap.Error(err))
				_ = client.Close()
			} else {
				redisClient = client
				defer redisClient.Close()
			}
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("soundbite")); err == nil {
			natsConn = conn
			defer conn.Drain() //nolint:errcheck
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	provider, closeProvider := idempotency.NewProvider(ctx, idempotency.Config{
		Backend:  cfg.CacheBackend,
		RedisURL: cfg.RedisURL,
	}, redisClient, logger.Named("cache"))
	defer closeProvider()

	registry := idempotency.NewRegistry()
	registry.Require(http.MethodPost, "/v1/soundbites")

	repo := buildRepository(redisClient)
	publisher := queue.NewPublisher(natsConn, cfg.JobSubject)
	svc := soundbiteservice.New(repo, publisher, domain.SystemClock{}, logger.Named("service"))
	soundbiteHTTP := handler.NewHTTP(svc, logger.Named("http"))

	interceptor := idempotency.NewMiddleware(provider, logger.Named("idempotency"))
	admin := idempotency.NewAdminHandler(provider, logger.Named("admin"))

	r := chi.NewRouter()
	r.Use(httpmiddleware.SecurityHeaders)
	if limiter := buildRateLimiter(redisClient, cfg); limiter != nil {
		r.Use(limiter.Middleware)
	}
	r.Use(idempotency.Gate(registry))
	r.Use(interceptor.Handler)

	r.Route("/v1/admin/idempotency", func(ar chi.Router) {
		if cfg.JWTSecret != "" {
			ar.Use(auth.Middleware(cfg.JWTSecret, "admin"))
		}
		ar.Get("/stats", admin.Stats)
		ar.Delete("/", admin.Clear)
	})
	r.Mount("/observability", observability.MetricsRouter())
	r.Mount("/", soundbiteHTTP.Router())

	if natsConn != nil {
		jobWorker := worker.New(natsConn, repo, worker.NewLocalSynthesizer(""), logger.Named("worker"), worker.Config{
			Subject:    cfg.JobSubject,
			JobTimeout: cfg.JobTimeout,
		})
		go func() {
			if err := jobWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("job worker stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("job worker disabled, no NATS connection")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("soundbite service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildRepository(redisClient *redis.Client) domain.Repository {
	if redisClient != nil {
		return repository.NewRedisRepository(redisClient, "")
	}
	return repository.NewMemoryRepository()
}

func buildRateLimiter(redisClient *redis.Client, cfg appConfig) *httpmiddleware.RateLimiter {
	if redisClient == nil {
		return nil
	}
	return httpmiddleware.NewRateLimiter(redisClient,
		httpmiddleware.RateConfig{Limit: cfg.ReadRateLimit, Window: cfg.RateWindow},
		httpmiddleware.RateConfig{Limit: cfg.WriteRateLimit, Window: cfg.RateWindow},
	)
}

func loadConfig() appConfig {
	return appConfig{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		Debug:          os.Getenv("DEBUG") == "true",
		CacheBackend:   getenv("CACHE_TYPE", "memory"),
		RedisURL:       os.Getenv("REDIS_URL"),
		NATSURL:        os.Getenv("NATS_URL"),
		JobSubject:     getenv("JOB_SUBJECT", queue.DefaultSubject),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		ReadRateLimit:  parseIntEnv("READ_RATE_LIMIT", 100),
		WriteRateLimit: parseIntEnv("WRITE_RATE_LIMIT", 20),
		RateWindow:     time.Duration(parseIntEnv("RATE_WINDOW_SEC", 1)) * time.Second,
		JobTimeout:     time.Duration(parseIntEnv("JOB_TIMEOUT_SEC", 30)) * time.Second,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
