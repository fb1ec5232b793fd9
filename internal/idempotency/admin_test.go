package idempotency_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/soundbite/internal/idempotency"
)

func TestAdminStats(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{})
	t.Cleanup(provider.Close)
	require.NoError(t, provider.Set(context.Background(), "key-1", record(200), time.Minute))

	admin := idempotency.NewAdminHandler(provider, nil)
	rr := httptest.NewRecorder()
	admin.Stats(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/idempotency/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, float64(1), body["size"])
	require.Equal(t, []any{"key-1"}, body["entries"])
}

func TestAdminClear(t *testing.T) {
	provider := idempotency.NewMemoryProvider(nil, idempotency.MemoryConfig{})
	t.Cleanup(provider.Close)
	require.NoError(t, provider.Set(context.Background(), "key-1", record(200), time.Minute))

	admin := idempotency.NewAdminHandler(provider, nil)
	rr := httptest.NewRecorder()
	admin.Clear(rr, httptest.NewRequest(http.MethodDelete, "/v1/admin/idempotency", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	size, err := provider.Size(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestAdminSurfacesBackendFailure(t *testing.T) {
	admin := idempotency.NewAdminHandler(failingProvider{}, nil)

	rr := httptest.NewRecorder()
	admin.Stats(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/idempotency/stats", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	admin.Clear(rr, httptest.NewRequest(http.MethodDelete, "/v1/admin/idempotency", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
