package idempotency_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/soundbite/internal/idempotency"
)

func TestRegistryLookup(t *testing.T) {
	registry := idempotency.NewRegistry()
	registry.Require(http.MethodPost, "/v1/soundbites")
	registry.Optional(http.MethodPut, "/v1/profiles")
	registry.RequireWithTTL(http.MethodPost, "/v1/payments", time.Hour)

	policy, ok := registry.Lookup(http.MethodPost, "/v1/soundbites")
	require.True(t, ok)
	require.True(t, policy.Required)
	require.Equal(t, idempotency.DefaultTTL, policy.TTL)

	policy, ok = registry.Lookup(http.MethodPut, "/v1/profiles")
	require.True(t, ok)
	require.False(t, policy.Required)

	policy, ok = registry.Lookup(http.MethodPost, "/v1/payments")
	require.True(t, ok)
	require.True(t, policy.Required)
	require.Equal(t, time.Hour, policy.TTL)

	_, ok = registry.Lookup(http.MethodGet, "/v1/soundbites")
	require.False(t, ok)
	_, ok = registry.Lookup(http.MethodPost, "/v1/unknown")
	require.False(t, ok)
}

func TestRegistryNormalizesTrailingSlash(t *testing.T) {
	registry := idempotency.NewRegistry()
	registry.Require(http.MethodPost, "/v1/soundbites/")

	_, ok := registry.Lookup(http.MethodPost, "/v1/soundbites")
	require.True(t, ok)
}

func TestRequireWithTTLRejectsNonPositive(t *testing.T) {
	registry := idempotency.NewRegistry()
	registry.RequireWithTTL(http.MethodPost, "/v1/x", 0)

	policy, ok := registry.Lookup(http.MethodPost, "/v1/x")
	require.True(t, ok)
	require.Equal(t, idempotency.DefaultTTL, policy.TTL)
}
