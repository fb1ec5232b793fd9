package idempotency

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL bounds the replay window when a route does not choose its own.
const DefaultTTL = 24 * time.Hour

// Policy declares how a route participates in idempotency: whether the key
// header is mandatory and how long successful responses stay replayable.
// Policies are attached at registration time and never mutated afterwards.
type Policy struct {
	Required bool
	TTL      time.Duration
}

// Registry maps method+path to a Policy. It is populated during startup and
// read-only at request time, so lookups take no lock.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// Require registers a route that must carry an idempotency key, cached for
// the default TTL.
func (r *Registry) Require(method, path string) {
	r.policies[routeKey(method, path)] = Policy{Required: true, TTL: DefaultTTL}
}

// Optional registers a route that caches responses when a key is supplied
// but accepts requests without one.
func (r *Registry) Optional(method, path string) {
	r.policies[routeKey(method, path)] = Policy{Required: false, TTL: DefaultTTL}
}

// RequireWithTTL registers a mandatory-key route with a custom replay window.
func (r *Registry) RequireWithTTL(method, path string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r.policies[routeKey(method, path)] = Policy{Required: true, TTL: ttl}
}

// Lookup resolves the policy for a method and path.
func (r *Registry) Lookup(method, path string) (Policy, bool) {
	policy, ok := r.policies[routeKey(method, path)]
	return policy, ok
}

func routeKey(method, path string) string {
	return method + " " + strings.TrimSuffix(path, "/")
}

type policyContextKey struct{}

// PolicyFromContext returns the policy the gate resolved for this request.
func PolicyFromContext(ctx context.Context) (Policy, bool) {
	policy, ok := ctx.Value(policyContextKey{}).(Policy)
	return policy, ok
}

func withPolicy(ctx context.Context, policy Policy) context.Context {
	return context.WithValue(ctx, policyContextKey{}, policy)
}

// fallbackPolicy preserves the path-convention behavior for routes that were
// never registered: POSTs to the soundbite resource require a key, paths
// naming themselves idempotent require one unless also marked optional.
func fallbackPolicy(r *http.Request) (Policy, bool) {
	path := r.URL.Path
	critical := strings.Contains(path, "soundbite") && r.Method == http.MethodPost
	namedIdempotent := strings.Contains(path, "idempotent") && r.Method != http.MethodGet
	optional := strings.Contains(path, "optional")

	switch {
	case critical, namedIdempotent && !optional:
		return Policy{Required: true, TTL: DefaultTTL}, true
	case optional:
		return Policy{Required: false, TTL: DefaultTTL}, true
	default:
		return Policy{}, false
	}
}
