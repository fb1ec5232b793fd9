package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/soundbite/internal/idempotency"
)

func record(status int) idempotency.CachedResponse {
	return idempotency.CachedResponse{
		Body:      map[string]any{"id": "abc", "status": "pending"},
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestMemoryProviderRoundTrip(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{})
	defer provider.Close()
	ctx := context.Background()

	_, ok, err := provider.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, provider.Set(ctx, "key", record(201), time.Minute))

	got, ok, err := provider.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 201, got.Status)
	require.Equal(t, "abc", got.Body["id"])
}

func TestMemoryProviderTTLExpiry(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{})
	defer provider.Close()
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "short", record(200), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, ok, err := provider.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryProviderEvictsLeastRecentlyAccessed(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{MaxEntries: 3})
	defer provider.Close()
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "a", record(200), time.Minute))
	require.NoError(t, provider.Set(ctx, "b", record(200), time.Minute))
	require.NoError(t, provider.Set(ctx, "c", record(200), time.Minute))

	// Touch a and b so c becomes the least recently accessed entry.
	time.Sleep(5 * time.Millisecond)
	_, _, _ = provider.Get(ctx, "a")
	_, _, _ = provider.Get(ctx, "b")
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, provider.Set(ctx, "d", record(200), time.Minute))

	_, ok, _ := provider.Get(ctx, "c")
	require.False(t, ok)
	for _, key := range []string{"a", "b", "d"} {
		_, ok, _ := provider.Get(ctx, key)
		require.True(t, ok, "expected %q to survive eviction", key)
	}

	size, err := provider.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, size)
}

func TestMemoryProviderSizeAndKeysPurgeExpired(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{})
	defer provider.Close()
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "live", record(200), time.Minute))
	require.NoError(t, provider.Set(ctx, "dead", record(200), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	size, err := provider.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, size)

	keys, err := provider.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"live"}, keys)
}

func TestMemoryProviderDeleteAndClear(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{})
	defer provider.Close()
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "key", record(200), time.Minute))
	require.NoError(t, provider.Delete(ctx, "key"))
	require.NoError(t, provider.Delete(ctx, "key")) // idempotent

	require.NoError(t, provider.Set(ctx, "one", record(200), time.Minute))
	require.NoError(t, provider.Set(ctx, "two", record(200), time.Minute))
	require.NoError(t, provider.Clear(ctx))

	size, err := provider.Size(ctx)
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestMemoryProviderBackgroundSweep(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{SweepInterval: 10 * time.Millisecond})
	defer provider.Close()
	ctx := context.Background()

	require.NoError(t, provider.Set(ctx, "dead", record(200), time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	// The sweep should have removed the entry without any Get/Size call.
	keys, err := provider.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}
