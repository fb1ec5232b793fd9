package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/example/soundbite/internal/soundbite/domain"
	"github.com/example/soundbite/internal/soundbite/repository"
)

func newRedisRepo(t *testing.T) *repository.RedisRepository {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return repository.NewRedisRepository(client, "")
}

func sample() domain.Soundbite {
	now := time.Unix(1700000000, 0).UTC()
	return domain.Soundbite{
		ID:        uuid.New(),
		Text:      "hello",
		VoiceID:   "Joanna",
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	sb := sample()
	created, err := repo.Create(ctx, sb)
	require.NoError(t, err)
	require.Equal(t, sb, created)

	got, err := repo.GetByID(ctx, sb.ID)
	require.NoError(t, err)
	require.Equal(t, sb, got)
}

func TestRedisRepositoryUpdate(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	sb := sample()
	_, err := repo.Create(ctx, sb)
	require.NoError(t, err)

	sb.Status = domain.StatusReady
	sb.AudioKey = "audio/Joanna/" + sb.ID.String() + ".mp3"
	updated, err := repo.Update(ctx, sb)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, updated.Status)

	got, err := repo.GetByID(ctx, sb.ID)
	require.NoError(t, err)
	require.Equal(t, sb.AudioKey, got.AudioKey)
}

func TestRedisRepositoryNotFound(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Update(ctx, sample())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
