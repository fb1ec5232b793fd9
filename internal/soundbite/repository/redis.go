package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/soundbite/internal/soundbite/domain"
)

const defaultJobPrefix = "soundbite:job:"

// RedisRepository persists soundbites as JSON values in Redis so multiple
// API and worker processes share job state.
type RedisRepository struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRepository constructs the repository. An empty prefix selects the
// default namespace.
func NewRedisRepository(client redis.Cmdable, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultJobPrefix
	}
	return &RedisRepository{client: client, prefix: prefix}
}

// Create stores the soundbite.
func (r *RedisRepository) Create(ctx context.Context, sb domain.Soundbite) (domain.Soundbite, error) {
	if err := r.put(ctx, sb); err != nil {
		return domain.Soundbite{}, fmt.Errorf("create soundbite: %w", err)
	}
	return sb, nil
}

// GetByID retrieves a soundbite.
func (r *RedisRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Soundbite, error) {
	raw, err := r.client.Get(ctx, r.prefix+id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Soundbite{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Soundbite{}, fmt.Errorf("get soundbite: %w", err)
	}
	var sb domain.Soundbite
	if err := json.Unmarshal([]byte(raw), &sb); err != nil {
		return domain.Soundbite{}, fmt.Errorf("decode soundbite: %w", err)
	}
	return sb, nil
}

// Update replaces the stored soundbite.
func (r *RedisRepository) Update(ctx context.Context, sb domain.Soundbite) (domain.Soundbite, error) {
	exists, err := r.client.Exists(ctx, r.prefix+sb.ID.String()).Result()
	if err != nil {
		return domain.Soundbite{}, fmt.Errorf("check soundbite: %w", err)
	}
	if exists == 0 {
		return domain.Soundbite{}, domain.ErrNotFound
	}
	if err := r.put(ctx, sb); err != nil {
		return domain.Soundbite{}, fmt.Errorf("update soundbite: %w", err)
	}
	return sb, nil
}

func (r *RedisRepository) put(ctx context.Context, sb domain.Soundbite) error {
	payload, err := json.Marshal(sb)
	if err != nil {
		return fmt.Errorf("encode soundbite: %w", err)
	}
	return r.client.Set(ctx, r.prefix+sb.ID.String(), payload, 0).Err()
}
